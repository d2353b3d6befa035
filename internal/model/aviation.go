package model

import (
	"bytes"
	"fmt"
	"math"

	json "github.com/goccy/go-json"
)

// Aviation is the /aviation/lszi payload.
type Aviation struct {
	Weather *Weather `json:"weather,omitempty"`
	Runway  *Runway  `json:"runway,omitempty"`
}

// Weather is the airfield observation. Every field is optional.
type Weather struct {
	OAT       *float64 `json:"oat,omitempty"`
	Dew       *float64 `json:"dew,omitempty"`
	Spread    *float64 `json:"spread,omitempty"`
	Humidity  *float64 `json:"humidity,omitempty"`
	HPa       *float64 `json:"hpa,omitempty"`
	WindKt    *float64 `json:"wind_kt,omitempty"`
	WindKmh   *float64 `json:"wind_kmh,omitempty"`
	WindDir   *float64 `json:"wind_dir,omitempty"`
	GustKt    *float64 `json:"gust_kt,omitempty"`
	GustKmh   *float64 `json:"gust_kmh,omitempty"`
	CloudBase *float64 `json:"cloud_base,omitempty"`
	DA        *float64 `json:"da,omitempty"`
	PA        *float64 `json:"pa,omitempty"`
	Alt       *float64 `json:"alt,omitempty"`
	Valid     *bool    `json:"valid,omitempty"`
	Timestamp *float64 `json:"timestamp,omitempty"`
	Age       *float64 `json:"age,omitempty"`
	RainRate  *float64 `json:"rain_rate_mm,omitempty"`
}

// Runway is the airfield runway state.
type Runway struct {
	Status     *RunwayStatus `json:"status,omitempty"`
	Text       *string       `json:"text,omitempty"`
	Altitude   *float64      `json:"altitude,omitempty"`
	Additional *string       `json:"additional,omitempty"`
}

// Runway status codes published by the service.
const (
	RunwayClosed = 0
	RunwayOpen   = 1
	RunwayPPR    = 2
)

var runwayStatusText = map[int]string{
	RunwayClosed: "Closed",
	RunwayOpen:   "Open",
	RunwayPPR:    "PPR",
}

// RunwayStatusText maps a status code to its display string. Unknown codes
// render as "Status <n>".
func RunwayStatusText(code int) string {
	if s, ok := runwayStatusText[code]; ok {
		return s
	}
	return fmt.Sprintf("Status %d", code)
}

// RunwayStatus is the runway status field. Integral numbers are status
// codes; any other JSON value is kept as sent.
type RunwayStatus struct {
	code  int
	coded bool
	raw   any
}

// RunwayCode returns a status holding code.
func RunwayCode(code int) *RunwayStatus {
	return &RunwayStatus{code: code, coded: true}
}

func (s *RunwayStatus) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	*s = RunwayStatus{}
	switch x := v.(type) {
	case nil:
	case float64:
		if x == math.Trunc(x) && math.Abs(x) <= math.MaxInt32 {
			s.code, s.coded = int(x), true
		} else {
			s.raw = x
		}
	case string:
		s.raw = x
	default:
		s.raw = string(bytes.TrimSpace(b))
	}
	return nil
}

func (s RunwayStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Value())
}

// Code returns the status code. ok is false when the service sent
// something other than an integral number.
func (s *RunwayStatus) Code() (code int, ok bool) {
	if s == nil || !s.coded {
		return 0, false
	}
	return s.code, true
}

// Value is the status as sent: an int for codes, otherwise the decoded
// JSON value. Nil when absent.
func (s *RunwayStatus) Value() any {
	switch {
	case s == nil:
		return nil
	case s.coded:
		return s.code
	default:
		return s.raw
	}
}

// String renders the status for display. Codes go through
// RunwayStatusText; anything else renders as "Status <value>".
func (s *RunwayStatus) String() string {
	if code, ok := s.Code(); ok {
		return RunwayStatusText(code)
	}
	return fmt.Sprintf("Status %v", s.Value())
}

func (s *RunwayStatus) present() bool {
	return s != nil && (s.coded || s.raw != nil)
}

// DisplayStatus returns the runway status for display: the mapped status
// code when present, otherwise the free-text field. ok is false when
// neither is available.
func (r *Runway) DisplayStatus() (string, bool) {
	if r == nil {
		return "", false
	}
	if r.Status.present() {
		return r.Status.String(), true
	}
	if r.Text != nil {
		return *r.Text, true
	}
	return "", false
}
