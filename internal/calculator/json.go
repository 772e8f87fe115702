package calculator

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// wireFloat encodes a float64 the way protobuf JSON does: finite values as
// numbers, NaN and infinities as the strings "NaN", "Infinity", "-Infinity".
// Numeric strings are accepted on input.
type wireFloat float64

func (f wireFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *wireFloat) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case "NaN":
			*f = wireFloat(math.NaN())
			return nil
		case "Infinity":
			*f = wireFloat(math.Inf(1))
			return nil
		case "-Infinity":
			*f = wireFloat(math.Inf(-1))
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*f = wireFloat(v)
	return nil
}

type wireRequest struct {
	A wireFloat `json:"a"`
	B wireFloat `json:"b"`
}

func (r CalcRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRequest{A: wireFloat(r.A), B: wireFloat(r.B)})
}

func (r *CalcRequest) UnmarshalJSON(data []byte) error {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.A, r.B = float64(w.A), float64(w.B)
	return nil
}

type wireResponse struct {
	Result wireFloat `json:"result"`
	Error  string    `json:"error,omitempty"`
}

func (r CalcResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireResponse{Result: wireFloat(r.Result), Error: r.Error})
}

func (r *CalcResponse) UnmarshalJSON(data []byte) error {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Result, r.Error = float64(w.Result), w.Error
	return nil
}
