// Package qrcode renders challenge URIs as scannable QR codes: PNG bytes,
// PNG files, or block characters for a terminal. It is a thin wrapper
// around github.com/skip2/go-qrcode used by the developer CLI to produce
// test enrollment and authentication codes; this module never decodes
// QR images.
package qrcode
