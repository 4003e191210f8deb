package docai

import (
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// formFieldsFromProto flattens detected form fields from all pages into a
// single map. Keys lose a trailing colon; repeated keys collect their
// values into a string slice.
func formFieldsFromProto(doc *documentaipb.Document) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, page := range doc.Pages {
		for _, field := range page.FormFields {
			key := strings.TrimSpace(textFromLayout(field.GetFieldName(), doc.Text))
			key = strings.TrimSuffix(key, ":")
			if key == "" {
				continue
			}
			value := strings.TrimSpace(textFromLayout(field.GetFieldValue(), doc.Text))

			switch existing := fields[key].(type) {
			case nil:
				fields[key] = value
			case string:
				if existing != value {
					fields[key] = []string{existing, value}
				}
			case []string:
				fields[key] = append(existing, value)
			}
		}
	}
	return fields
}

// entitiesFromProto converts custom extractor entities into a nested map.
// An entity with properties becomes a child map, keeping its own mention
// text under "_value". Repeated scalar keys collect into a string slice.
func entitiesFromProto(doc *documentaipb.Document) map[string]interface{} {
	fields := make(map[string]interface{})
	if doc == nil || len(doc.Entities) == 0 {
		return fields
	}
	for _, entity := range doc.Entities {
		if entity.GetType() == "" {
			continue
		}
		addEntity(entity, fields)
	}
	return fields
}

func addEntity(entity *documentaipb.Document_Entity, fields map[string]interface{}) {
	key := entity.GetType()
	value := entity.GetMentionText()

	if len(entity.Properties) == 0 {
		addScalar(fields, key, value)
		return
	}

	var props map[string]interface{}
	switch existing := fields[key].(type) {
	case map[string]interface{}:
		props = existing
	case nil:
		props = make(map[string]interface{})
		if value != "" {
			props["_value"] = value
		}
	default:
		props = map[string]interface{}{"_value": existing}
	}
	for _, child := range entity.Properties {
		addEntity(child, props)
	}
	fields[key] = props
}

func addScalar(fields map[string]interface{}, key, value string) {
	if key == "" {
		return
	}
	switch existing := fields[key].(type) {
	case nil:
		if value != "" {
			fields[key] = value
		} else {
			fields[key] = make(map[string]interface{})
		}
	case string:
		if value != "" && existing != value {
			fields[key] = []string{existing, value}
		}
	case []string:
		if value != "" && !containsString(existing, value) {
			fields[key] = append(existing, value)
		}
	case map[string]interface{}:
		if value != "" {
			addScalar(existing, "_value", value)
		}
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
