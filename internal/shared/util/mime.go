package util

import "github.com/gabriel-vasile/mimetype"

const sniffLen = 1024

// DetectMIME returns the content type sniffed from the first KiB of content.
func DetectMIME(content []byte) string {
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	return mimetype.Detect(head).String()
}
