package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Label is a single YOLO bounding box with normalized coordinates.
type Label struct {
	Class   int     `json:"cls"`
	XCenter float64 `json:"x_center"`
	YCenter float64 `json:"y_center"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	IsTP    bool    `json:"is_tp"`
}

// UnmarshalJSON decodes a stored label; a missing is_tp means true positive.
func (l *Label) UnmarshalJSON(data []byte) error {
	type alias Label
	a := alias{IsTP: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*l = Label(a)
	return nil
}

// YOLOLine formats the label as a plain-text derivative row.
func (l Label) YOLOLine() string {
	return fmt.Sprintf("%d %.6f %.6f %.6f %.6f", l.Class, l.XCenter, l.YCenter, l.Width, l.Height)
}

// TruePositives returns the true-positive subset in input order.
func TruePositives(labels []Label) []Label {
	kept := make([]Label, 0, len(labels))
	for _, l := range labels {
		if l.IsTP {
			kept = append(kept, l)
		}
	}
	return kept
}

var errMissingField = errors.New("missing field")

// ParseLabel validates one incoming label entry. A non-nil error is the
// reason the entry is dropped.
func ParseLabel(raw map[string]any) (Label, error) {
	if raw == nil {
		return Label{}, errors.New("entry is not an object")
	}

	cls, err := numberField(raw, "cls")
	if err != nil {
		return Label{}, err
	}
	if cls < 0 {
		return Label{}, fmt.Errorf("cls: negative class %v", cls)
	}

	label := Label{Class: int(cls)}
	coords := []struct {
		key string
		dst *float64
	}{
		{"x_center", &label.XCenter},
		{"y_center", &label.YCenter},
		{"width", &label.Width},
		{"height", &label.Height},
	}
	for _, c := range coords {
		v, err := numberField(raw, c.key)
		if err != nil {
			return Label{}, err
		}
		if v < 0 || v > 1 {
			return Label{}, fmt.Errorf("%s: %v outside [0,1]", c.key, v)
		}
		*c.dst = v
	}

	isTP, err := boolField(raw, "is_tp", true)
	if err != nil {
		return Label{}, err
	}
	label.IsTP = isTP

	return label, nil
}

func numberField(raw map[string]any, key string) (float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%s: %w", key, errMissingField)
	}

	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: not numeric: %q", key, n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%s: not numeric: %T", key, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s: not finite", key)
	}
	return f, nil
}

func boolField(raw map[string]any, key string, def bool) (bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return def, nil
	}

	switch b := v.(type) {
	case bool:
		return b, nil
	case float64:
		return b != 0, nil
	case int:
		return b != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		}
	}
	return false, fmt.Errorf("%s: not a boolean: %v", key, v)
}
