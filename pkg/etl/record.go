package etl

import (
	"strconv"
	"strings"
)

// Record is one raw imported row or object. Sources disagree on field naming,
// so every canonical attribute is backed by an ordered candidate list tried in
// priority order. Supporting a new source format is a table change here, not a
// code change in the extractors.
type Record map[string]any

var (
	companyFields   = []string{"companyName", "company", "businessName", "Company Name"}
	firstNameFields = []string{"firstName", "First Name"}
	lastNameFields  = []string{"lastName", "Last Name"}
	fullNameFields  = []string{"fullName", "contactName", "name", "Contact Name"}
	titleFields     = []string{"title", "Title"}

	phoneFields     = []string{"phone", "Phone", "Phone Number", "mobile", "telephone"}
	phoneListFields = []string{"phones", "enrichedPhones"}
	emailFields     = []string{"email", "Email"}
	emailListFields = []string{"emails", "enrichedEmails"}

	streetFields = []string{"address", "address1", "street", "Address"}
	cityFields   = []string{"city", "City"}
	stateFields  = []string{"state", "State"}
	zipFields    = []string{"zip", "zipCode", "Zip"}

	sicFields      = []string{"sicCode", "sic", "SIC Code"}
	industryFields = []string{"industry", "Industry"}
	employeeFields = []string{"employees", "Employees"}
	revenueFields  = []string{"revenue", "Revenue"}
	websiteFields  = []string{"website", "Website"}

	propertyTypeFields   = []string{"propertyType"}
	bedroomFields        = []string{"bedrooms"}
	bathroomFields       = []string{"bathrooms"}
	sqftFields           = []string{"sqft"}
	yearBuiltFields      = []string{"yearBuilt"}
	estimatedValueFields = []string{"estimatedValue"}
	lastSaleFields       = []string{"lastSaleAmount"}

	ownerNameFields      = []string{"ownerName"}
	ownerFirstFields     = []string{"ownerFirstName"}
	ownerLastFields      = []string{"ownerLastName"}
	mailingStreetFields  = []string{"mailingAddress"}
	mailingCityFields    = []string{"mailingCity"}
	mailingStateFields   = []string{"mailingState"}
	mailingZipFields     = []string{"mailingZip"}
)

// str returns the first non-empty scalar value among the candidate fields.
func (r Record) str(fields []string) string {
	for _, f := range fields {
		if s := asString(r[f]); s != "" {
			return s
		}
	}
	return ""
}

// strs collects every scalar candidate plus every element of the list
// candidates, in table order.
func (r Record) strs(scalars, lists []string) []string {
	var out []string
	for _, f := range scalars {
		if s := asString(r[f]); s != "" {
			out = append(out, s)
		}
	}
	for _, f := range lists {
		items, ok := r[f].([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// asString renders a decoded JSON scalar as a string. Numbers show up as
// float64 after unmarshalling, so integral values are printed without a
// fractional part.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
