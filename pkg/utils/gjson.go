package utils

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	ErrGjsonNotFound  = errors.New("specified path does not exist")
	ErrGjsonWrongType = errors.New("wrong type")
)

// GjsonGet reads path from a raw json document, failing when it is absent.
func GjsonGet(json []byte, path string) (gjson.Result, error) {
	result := gjson.GetBytes(json, path)
	if !result.Exists() {
		return result, fmt.Errorf("%s: %w", path, ErrGjsonNotFound)
	}
	return result, nil
}

// GjsonParseStringMap flattens a json object into field -> text. Used for the
// per field errors a rejected form comes back with; non string values keep
// their raw json.
func GjsonParseStringMap(jsonObject string) (map[string]string, error) {
	if jsonObject == "" {
		return nil, nil
	}
	result := gjson.Parse(jsonObject)
	if !result.IsObject() {
		return nil, ErrGjsonWrongType
	}
	ret := make(map[string]string)
	result.ForEach(func(key, value gjson.Result) bool {
		ret[key.String()] = value.String()
		return true
	})
	return ret, nil
}
