package checkout

import (
	"bytes"
	"encoding/xml"
	"net/http"
)

// Namespace is the provider's checkout schema namespace, carried by both
// acknowledgments and outbound command documents.
const Namespace = "http://checkout.google.com/schema/2"

// BuildAck renders the acknowledgment document the provider requires to
// stop retransmitting a notification. The output is byte-for-byte
// reproducible for a given serial number.
func BuildAck(serial string) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<notification-acknowledgment xmlns="` + Namespace + `" serial-number="`)
	_ = xml.EscapeText(&buf, []byte(serial))
	buf.WriteString(`"/>`)
	return buf.Bytes()
}

// WriteAck sends the acknowledgment with the content type the provider
// expects. This is the entirety of the success-path response body.
func WriteAck(w http.ResponseWriter, serial string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(BuildAck(serial))
}
