package model

// Reflection is the end-of-day journal entry; there is at most one per date.
type Reflection struct {
	Date         string `json:"date"`
	Good         string `json:"good"`
	Distraction  string `json:"distraction"`
	Improve      string `json:"improve"`
	FocusMinutes *int   `json:"focusMinutes,omitempty"`
	Note         string `json:"note,omitempty"`
	Rating       *int   `json:"rating,omitempty"`
}
