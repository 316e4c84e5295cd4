package collectcareneeds

import "afh-workers/internal/common/validation"

// rawNeedsSchema accepts the wizard answers before normalization, so sets
// may arrive as arrays or comma separated strings and amounts as numbers
// or strings such as "$4,500".
const rawNeedsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "tagSet": {
      "oneOf": [
        {"type": "array", "items": {"type": "string", "maxLength": 64}, "maxItems": 50},
        {"type": "string", "maxLength": 1000},
        {"type": "null"}
      ]
    },
    "amount": {
      "oneOf": [
        {"type": "number", "minimum": 0, "maximum": 100000},
        {"type": "string", "pattern": "^\\s*(USD)?\\s*\\$?\\s*[0-9][0-9,]*(\\.[0-9]{1,2})?\\s*$"},
        {"type": "null"}
      ]
    }
  },
  "properties": {
    "careType": {
      "enum": ["general", "dementia", "mental_health", "developmental_disability", "hospice", "respite", "", null]
    },
    "medicalNeeds": {"$ref": "#/definitions/tagSet"},
    "dailyHelp": {"$ref": "#/definitions/tagSet"},
    "preferences": {"$ref": "#/definitions/tagSet"},
    "timeline": {
      "enum": ["immediately", "within_30_days", "within_90_days", "exploring", "", null]
    },
    "location": {
      "type": "object",
      "properties": {
        "city": {"type": ["string", "null"], "maxLength": 100},
        "zip": {
          "oneOf": [
            {"type": "string", "pattern": "^\\d{5}$"},
            {"type": "null"}
          ]
        },
        "radiusMiles": {"type": ["number", "null"], "minimum": 1, "maximum": 200},
        "latitude": {"type": ["number", "null"], "minimum": -90, "maximum": 90},
        "longitude": {"type": ["number", "null"], "minimum": -180, "maximum": 180}
      }
    },
    "budget": {
      "type": "object",
      "properties": {
        "min": {"$ref": "#/definitions/amount"},
        "max": {"$ref": "#/definitions/amount"},
        "usesMedicaid": {"type": ["boolean", "null"]},
        "hasLongTermCareInsurance": {"type": ["boolean", "null"]}
      }
    }
  }
}`

var rawSchema = validation.MustCompileSchema(rawNeedsSchema)
