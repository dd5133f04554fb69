package validators

import "go.mongodb.org/mongo-driver/bson"

var contactSchema = bson.M{
	"bsonType": "object",
	"required": []string{"name", "phone"},
	"properties": bson.M{
		"name": bson.M{
			"bsonType":  "string",
			"minLength": 2,
			"maxLength": 100,
		},
		"phone": bson.M{
			"bsonType": "string",
			"pattern":  `^\+[1-9][0-9]{6,14}$`,
		},
		"email": bson.M{
			"bsonType":  "string",
			"maxLength": 254,
		},
	},
}

var AppointmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"provider_id",
			"service_id",
			"status",
			"start_time",
			"end_time",
			"occupied_start",
			"occupied_end",
			"time_zone",
			"customer",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"provider_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"service_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"room_id": bson.M{
				"bsonType":  "string",
				"maxLength": 64,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending_hold",
					"confirmed",
					"cancelled",
					"completed",
					"no_show",
				},
			},

			"start_time":      bson.M{"bsonType": "date"},
			"end_time":        bson.M{"bsonType": "date"},
			"occupied_start":  bson.M{"bsonType": "date"},
			"occupied_end":    bson.M{"bsonType": "date"},
			"hold_expires_at": bson.M{"bsonType": "date"},

			"time_zone": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"customer": contactSchema,
			"patient":  contactSchema,

			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}

var ProviderLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"version"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"version":    bson.M{"bsonType": []string{"int", "long"}},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
