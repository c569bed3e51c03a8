package isin

// Country describes the issuing country derived from an ISIN prefix.
type Country struct {
	Name   string `json:"name"`
	Region string `json:"region"`
}

var unknownCountry = Country{Name: "Unknown", Region: "Unknown"}

// Prefixes cover the markets we commonly see in custody and fund documents.
// XS is the international (clearing system) prefix used for eurobonds.
var countries = map[string]Country{
	"US": {Name: "United States", Region: "North America"},
	"CA": {Name: "Canada", Region: "North America"},
	"MX": {Name: "Mexico", Region: "North America"},
	"GB": {Name: "United Kingdom", Region: "Europe"},
	"IE": {Name: "Ireland", Region: "Europe"},
	"FR": {Name: "France", Region: "Europe"},
	"DE": {Name: "Germany", Region: "Europe"},
	"CH": {Name: "Switzerland", Region: "Europe"},
	"NL": {Name: "Netherlands", Region: "Europe"},
	"BE": {Name: "Belgium", Region: "Europe"},
	"LU": {Name: "Luxembourg", Region: "Europe"},
	"IT": {Name: "Italy", Region: "Europe"},
	"ES": {Name: "Spain", Region: "Europe"},
	"PT": {Name: "Portugal", Region: "Europe"},
	"AT": {Name: "Austria", Region: "Europe"},
	"SE": {Name: "Sweden", Region: "Europe"},
	"NO": {Name: "Norway", Region: "Europe"},
	"DK": {Name: "Denmark", Region: "Europe"},
	"FI": {Name: "Finland", Region: "Europe"},
	"JE": {Name: "Jersey", Region: "Europe"},
	"GG": {Name: "Guernsey", Region: "Europe"},
	"IM": {Name: "Isle of Man", Region: "Europe"},
	"JP": {Name: "Japan", Region: "Asia"},
	"CN": {Name: "China", Region: "Asia"},
	"HK": {Name: "Hong Kong", Region: "Asia"},
	"SG": {Name: "Singapore", Region: "Asia"},
	"KR": {Name: "South Korea", Region: "Asia"},
	"IN": {Name: "India", Region: "Asia"},
	"AU": {Name: "Australia", Region: "Oceania"},
	"NZ": {Name: "New Zealand", Region: "Oceania"},
	"BR": {Name: "Brazil", Region: "South America"},
	"ZA": {Name: "South Africa", Region: "Africa"},
	"KY": {Name: "Cayman Islands", Region: "Caribbean"},
	"BM": {Name: "Bermuda", Region: "Caribbean"},
	"VG": {Name: "British Virgin Islands", Region: "Caribbean"},
	"XS": {Name: "International", Region: "International"},
}

// CountryInfo resolves the issuing country for an identifier by its two-letter
// prefix. Unknown prefixes return {"Unknown", "Unknown"}.
func CountryInfo(identifier string) Country {
	if c, ok := countries[CountryCode(identifier)]; ok {
		return c
	}
	return unknownCountry
}
