package model

// Well-known setting keys
const (
	SettingDefaultCountryCode = "default_country_code"
)

// Setting is a key/value application setting
type Setting struct {
	Key   string `json:"key" gorm:"primaryKey;type:varchar(64)"`
	Value string `json:"value" gorm:"type:text"`
}
