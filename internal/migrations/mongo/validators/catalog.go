package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = []string{"int", "long"}

var ServiceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"duration_minutes",
			"slot_step_minutes",
			"is_active",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{"bsonType": "string"},
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},
			"duration_minutes": bson.M{
				"bsonType": integer,
				"minimum":  1,
				"maximum":  1440,
			},
			"buffer_before_minutes": bson.M{
				"bsonType": integer,
				"minimum":  0,
				"maximum":  720,
			},
			"buffer_after_minutes": bson.M{
				"bsonType": integer,
				"minimum":  0,
				"maximum":  720,
			},
			"slot_step_minutes": bson.M{
				"bsonType": integer,
				"minimum":  1,
				"maximum":  1440,
			},
			"is_active":  bson.M{"bsonType": "bool"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}

var WorkingHoursValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"provider_id", "weekday", "is_open"},
		"properties": bson.M{
			"provider_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"weekday": bson.M{
				"bsonType": integer,
				"minimum":  0,
				"maximum":  6,
			},
			"is_open": bson.M{"bsonType": "bool"},
			"start_local": bson.M{
				"bsonType": "string",
				"pattern":  `^([01][0-9]|2[0-3]):[0-5][0-9]$`,
			},
			"end_local": bson.M{
				"bsonType": "string",
				"pattern":  `^([01][0-9]|2[0-3]):[0-5][0-9]$`,
			},
		},
	},
}

var TimeOffValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"provider_id", "start", "end"},
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string"},
			"provider_id": bson.M{"bsonType": "string", "minLength": 1},
			"start":       bson.M{"bsonType": "date"},
			"end":         bson.M{"bsonType": "date"},
			"reason":      bson.M{"bsonType": "string", "maxLength": 200},
			"created_at":  bson.M{"bsonType": "date"},
		},
	},
}

var RoomValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "capacity"},
		"properties": bson.M{
			"_id":  bson.M{"bsonType": "string"},
			"name": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
			"capacity": bson.M{
				"bsonType": integer,
				"minimum":  1,
				"maximum":  1000,
			},
			"is_gym":     bson.M{"bsonType": "bool"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
