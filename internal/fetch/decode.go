package fetch

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// The contract returns a self-describing data URI embedding the metadata
// document, which itself embeds an encoded rendering payload in image /
// animation_url. Both layers come in a plain and a base64-wrapped variant.
const (
	jsonBase64Prefix = "data:application/json;base64,"
	jsonUTF8Prefix   = "data:application/json;utf8,"
	jsonPlainPrefix  = "data:application/json,"
	htmlBase64Prefix = "data:text/html;base64,"
	htmlPlainPrefix  = "data:text/html,"
)

// MetadataDocument is the decoded outer tokenURI document.
type MetadataDocument struct {
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Image        string      `json:"image"`
	AnimationURL string      `json:"animation_url"`
	Attributes   []Attribute `json:"attributes"`
}

// Attribute is one trait entry; values arrive as strings or numbers.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// ValueString normalizes the attribute value to its string form.
func (a Attribute) ValueString() string {
	switch v := a.Value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// DecodeMetadataDocument decodes the outer tokenURI document and returns the
// parsed document plus the raw JSON bytes used for content hashing.
// Unrecognized encodings are an error; the caller classifies it as a decode
// failure, never a crash.
func DecodeMetadataDocument(tokenURI string) (*MetadataDocument, []byte, error) {
	var raw []byte

	switch {
	case strings.HasPrefix(tokenURI, jsonBase64Prefix):
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(tokenURI, jsonBase64Prefix))
		if err != nil {
			return nil, nil, fmt.Errorf("invalid base64 metadata document: %w", err)
		}
		raw = decoded

	case strings.HasPrefix(tokenURI, jsonUTF8Prefix):
		raw = []byte(strings.TrimPrefix(tokenURI, jsonUTF8Prefix))

	case strings.HasPrefix(tokenURI, jsonPlainPrefix):
		raw = []byte(strings.TrimPrefix(tokenURI, jsonPlainPrefix))

	case strings.HasPrefix(strings.TrimSpace(tokenURI), "{"):
		raw = []byte(tokenURI)

	default:
		return nil, nil, fmt.Errorf("unrecognized tokenURI encoding: %q", truncate(tokenURI, 64))
	}

	var doc MetadataDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("invalid metadata JSON: %w", err)
	}

	if doc.AnimationURL != "" {
		if err := validatePayload(doc.AnimationURL); err != nil {
			return nil, nil, fmt.Errorf("animation_url: %w", err)
		}
	}
	if doc.Image != "" {
		if err := validatePayload(doc.Image); err != nil {
			return nil, nil, fmt.Errorf("image: %w", err)
		}
	}

	return &doc, raw, nil
}

// validatePayload checks the nested rendering payload. Base64-wrapped HTML
// must decode; plain HTML and ordinary URLs pass through untouched. The
// payload itself is opaque to the pipeline; the rendering engine consumes it.
func validatePayload(uri string) error {
	if strings.HasPrefix(uri, htmlBase64Prefix) {
		if _, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, htmlBase64Prefix)); err != nil {
			return fmt.Errorf("invalid base64 payload: %w", err)
		}
		return nil
	}
	if strings.HasPrefix(uri, htmlPlainPrefix) {
		return nil
	}
	if strings.HasPrefix(uri, "data:") {
		// Other data payloads (inline images etc.) are allowed as-is.
		return nil
	}
	return nil
}

// IPFSGatewayURL rewrites ipfs:// references to a gateway URL. Other URLs are
// returned unchanged.
func IPFSGatewayURL(gateway, uri string) string {
	if strings.HasPrefix(uri, "ipfs://") {
		return gateway + strings.TrimPrefix(uri, "ipfs://")
	}
	if strings.HasPrefix(uri, "ipfs/") {
		return gateway + strings.TrimPrefix(uri, "ipfs/")
	}
	return uri
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
