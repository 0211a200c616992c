package etl

import (
	"strings"

	"github.com/nextier/graph-etl/pkg/normalize"
)

// ContactName is a normalized person name split into its parts.
type ContactName struct {
	First string
	Last  string
	Full  string
}

// PostalAddress is a normalized US street address. Key is the deduplication
// key used for address nodes.
type PostalAddress struct {
	Street string
	City   string
	State  string
	Zip    string
	Key    string
}

// OwnerInfo is skip-trace owner data attached to a record.
type OwnerInfo struct {
	Name           string
	MailingAddress string
}

func extractCompany(r Record) string {
	return normalize.CompanyName(r.str(companyFields))
}

func extractContactName(r Record) *ContactName {
	first := r.str(firstNameFields)
	last := r.str(lastNameFields)
	if first != "" && last != "" {
		return &ContactName{
			First: normalize.Name(first),
			Last:  normalize.Name(last),
			Full:  normalize.Name(first + " " + last),
		}
	}

	full := r.str(fullNameFields)
	if full == "" {
		return nil
	}
	parts := strings.Fields(full)
	name := &ContactName{Full: normalize.Name(full)}
	if len(parts) > 0 {
		name.First = normalize.Name(parts[0])
		name.Last = normalize.Name(strings.Join(parts[1:], " "))
	}
	if name.Full == "" {
		return nil
	}
	return name
}

// extractPhones returns the distinct normalized phone numbers on a record.
// Numbers shorter than 10 digits are partial and dropped.
func extractPhones(r Record) []string {
	var phones []string
	seen := map[string]bool{}
	for _, raw := range r.strs(phoneFields, phoneListFields) {
		phone := normalize.Phone(raw)
		if len(phone) < 10 || seen[phone] {
			continue
		}
		seen[phone] = true
		phones = append(phones, phone)
	}
	return phones
}

// extractEmails returns the distinct normalized email addresses on a record.
func extractEmails(r Record) []string {
	var emails []string
	seen := map[string]bool{}
	for _, raw := range r.strs(emailFields, emailListFields) {
		email := normalize.Email(raw)
		if !strings.Contains(email, "@") || seen[email] {
			continue
		}
		seen[email] = true
		emails = append(emails, email)
	}
	return emails
}

// extractAddress resolves a record's address fields. Street, city and state
// are all required; a record missing any of them has no address node.
func extractAddress(r Record) *PostalAddress {
	street := normalize.Address(r.str(streetFields))
	city := strings.ToUpper(strings.TrimSpace(r.str(cityFields)))
	state := normalize.State(r.str(stateFields))
	if street == "" || city == "" || state == "" {
		return nil
	}
	zip := normalize.Zip(r.str(zipFields))
	return &PostalAddress{
		Street: street,
		City:   city,
		State:  state,
		Zip:    zip,
		Key:    addressKey(street, city, state, zip),
	}
}

func addressKey(street, city, state, zip string) string {
	key := street + ", " + city + ", " + state
	if zip != "" {
		key += " " + zip
	}
	return key
}

// extractOwner pulls skip-trace owner data from a record.
func extractOwner(r Record) *OwnerInfo {
	raw := r.str(ownerNameFields)
	if raw == "" {
		first, last := r.str(ownerFirstFields), r.str(ownerLastFields)
		if first == "" || last == "" {
			return nil
		}
		raw = first + " " + last
	}
	name := normalize.Name(raw)
	if name == "" {
		return nil
	}

	owner := &OwnerInfo{Name: name}
	if street := normalize.Address(r.str(mailingStreetFields)); street != "" {
		owner.MailingAddress = addressKey(
			street,
			strings.ToUpper(strings.TrimSpace(r.str(mailingCityFields))),
			normalize.State(r.str(mailingStateFields)),
			normalize.Zip(r.str(mailingZipFields)),
		)
	}
	return owner
}

// formatPhone renders a normalized 10-digit number as (NNN) NNN-NNNN.
// Anything else passes through unchanged.
func formatPhone(phone string) string {
	if len(phone) != 10 {
		return phone
	}
	return "(" + phone[:3] + ") " + phone[3:6] + "-" + phone[6:]
}

func cutEmail(email string) (local, domain string, ok bool) {
	return strings.Cut(email, "@")
}

// hasPropertyData reports whether a record carries property-search fields.
func hasPropertyData(r Record) bool {
	return r.str(propertyTypeFields) != "" ||
		r.str(estimatedValueFields) != "" ||
		r.str(sqftFields) != ""
}

func propertyAttributes(r Record) map[string]string {
	return map[string]string{
		"type":           r.str(propertyTypeFields),
		"bedrooms":       r.str(bedroomFields),
		"bathrooms":      r.str(bathroomFields),
		"sqft":           r.str(sqftFields),
		"yearBuilt":      r.str(yearBuiltFields),
		"estimatedValue": r.str(estimatedValueFields),
		"lastSaleAmount": r.str(lastSaleFields),
	}
}
