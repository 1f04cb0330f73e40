package ledger

// removedCustomerNames is the localized counterparty placeholder used when
// the customer's personal data was erased on the GoCardless side.
var removedCustomerNames = map[string]string{
	"en": "Removed customer",
	"de": "Entfernter Kunde",
	"fr": "Client supprimé",
}

// removedCustomerName returns the placeholder for the host locale, falling
// back to English.
func removedCustomerName(locale string) string {
	if name, ok := removedCustomerNames[locale]; ok {
		return name
	}
	return removedCustomerNames["en"]
}
