package util

import "strings"

// MaskContact obscures an owner contact for response payloads and logs,
// keeping only a bounded prefix and suffix visible.
func MaskContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return ""
	}
	if at := strings.Index(contact, "@"); at > 0 {
		local := contact[:at]
		if len(local) > 2 {
			local = local[:2] + "***"
		} else {
			local = local[:1] + "***"
		}
		return local + contact[at:]
	}
	if len(contact) > 8 {
		return contact[:4] + "****" + contact[len(contact)-4:]
	}
	if len(contact) > 4 {
		return contact[:2] + "****" + contact[len(contact)-2:]
	}
	return "****"
}
