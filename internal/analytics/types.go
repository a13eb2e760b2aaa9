package analytics

import "time"

// Breakdown is one entry of a count-by-key list.
type Breakdown struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

type LocationCount struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Count   int64  `json:"count"`
}

type CodeSummary struct {
	ID             string    `json:"id"`
	ShortCode      string    `json:"short_code"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DestinationURL string    `json:"destination_url"`
	Active         bool      `json:"active"`
	ScanCount      int64     `json:"scan_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type ScanView struct {
	ID          string    `json:"id"`
	CodeID      string    `json:"code_id"`
	ShortCode   string    `json:"short_code"`
	OccurredAt  time.Time `json:"timestamp"`
	DeviceClass string    `json:"device_class"`
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
}

type RecentScanView struct {
	ScanView
	CodeTitle  string `json:"code_title,omitempty"`
	CodeExists bool   `json:"code_exists"`
}

type Dashboard struct {
	Period       Period           `json:"period"`
	Window       Window           `json:"window"`
	TotalCodes   int64            `json:"total_codes"`
	ActiveCodes  int64            `json:"active_codes"`
	TotalScans   int64            `json:"total_scans"`
	PeriodScans  int64            `json:"period_scans"`
	MostScanned  []CodeSummary    `json:"most_scanned"`
	RecentScans  []RecentScanView `json:"recent_scans"`
	DeviceStats  []Breakdown      `json:"device_stats"`
	DailyScans   []DayCount       `json:"daily_scans"`
	TopCountries []Breakdown      `json:"top_countries"`
}

type CodeAnalytics struct {
	Period             Period          `json:"period"`
	Window             Window          `json:"window"`
	Code               CodeSummary     `json:"code"`
	TotalScans         int64           `json:"total_scans"`
	PeriodScans        int64           `json:"period_scans"`
	DeviceStats        []Breakdown     `json:"device_stats"`
	HourlyDistribution []HourCount     `json:"hourly_distribution"`
	DailyTrend         []DayCount      `json:"daily_trend"`
	Locations          []LocationCount `json:"locations"`
	Browsers           []Breakdown     `json:"browsers"`
}

type ScanPage struct {
	Scans      []ScanView `json:"scans"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int64      `json:"total"`
	TotalPages int        `json:"total_pages"`
}
