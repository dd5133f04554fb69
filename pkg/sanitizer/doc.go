// Package sanitizer normalizes contact input before validation and storage.
//
// All functions are idempotent and never fail: input that cannot be
// normalized comes back empty so the validator reports it as missing.
//
// Normalization includes:
//   - Names: collapse whitespace, trim leading/trailing spaces
//   - Emails: trim and lowercase
//   - Phone numbers: convert to E.164 format (+[country][number]) using the
//     clinic region as the hint for national numbers
package sanitizer
