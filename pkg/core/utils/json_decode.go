package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// Strategy names which decoder accepted an input.
type Strategy string

const (
	StrategyJSON   Strategy = "json"
	StrategyRepair Strategy = "repair"
	StrategyHJSON  Strategy = "hjson"
)

// RepairJSON fixes common hand-editing errors: unquoted keys, single quotes,
// trailing commas, comments, unclosed objects and markdown code fences.
func RepairJSON(malformedJSON string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformedJSON)
	if err != nil {
		return "", fmt.Errorf("json repair: %w", err)
	}
	return repaired, nil
}

// ParseHJSON converts Hjson (comments, unquoted keys and strings, optional
// commas) to standard JSON. Numbers keep their literal text.
func ParseHJSON(hjsonData string) (string, error) {
	opts := hjson.DefaultDecoderOptions()
	opts.UseJSONNumber = true
	var result interface{}
	if err := hjson.UnmarshalWithOptions([]byte(hjsonData), &result, opts); err != nil {
		return "", fmt.Errorf("hjson parse: %w", err)
	}
	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("hjson to json: %w", err)
	}
	return string(jsonBytes), nil
}

// SmartParse decodes input into v, trying in order:
// 1. Standard JSON
// 2. Hjson
// 3. JSON repair
//
// Hjson comes before repair so that commented override files keep their
// exact values; repair is the last resort for truncated or mangled exports.
func SmartParse(input []byte, v interface{}) (Strategy, error) {
	firstErr := json.Unmarshal(input, v)
	if firstErr == nil {
		return StrategyJSON, nil
	}

	if converted, err := ParseHJSON(string(input)); err == nil {
		if err := json.Unmarshal([]byte(converted), v); err == nil {
			return StrategyHJSON, nil
		}
	}

	if repaired, err := RepairJSON(string(input)); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return StrategyRepair, nil
		}
	}

	return "", fmt.Errorf("all decoding strategies failed: %w", firstErr)
}
