package output

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Result is a single harvested hash, ready for output.
type Result struct {
	Host      string `json:"host"`
	RID       uint32 `json:"rid"`
	Hash      string `json:"hash"` // hex MD5 digest
	Salt      string `json:"salt"` // hex signed NTP header
	Hashcat   string `json:"hashcat"`
	Timestamp string `json:"timestamp"`
}

// NewResult hex-encodes a harvested (rid, hash, salt) triple.
func NewResult(host string, rid uint32, hash, salt []byte, at time.Time) *Result {
	return &Result{
		Host:      host,
		RID:       rid,
		Hash:      hex.EncodeToString(hash),
		Salt:      hex.EncodeToString(salt),
		Hashcat:   FormatHashcat(rid, hash, salt),
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

// FormatHashcat renders hashcat mode 31300 input with the RID as username:
// "<rid>:$sntp-ms$<hex hash>$<hex salt>".
func FormatHashcat(rid uint32, hash, salt []byte) string {
	var b strings.Builder
	b.Grow(24 + 2*len(hash) + 2*len(salt))
	fmt.Fprintf(&b, "%d:$sntp-ms$", rid)
	b.WriteString(hex.EncodeToString(hash))
	b.WriteByte('$')
	b.WriteString(hex.EncodeToString(salt))
	return b.String()
}

type Formatter interface {
	Write(res *Result) error
	Flush() error
}

// Format names an output encoding.
type Format string

const (
	FormatHashcatLines Format = "hashcat"
	FormatJSONL        Format = "jsonl"
)

// ParseFormat validates a format name; empty means hashcat.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatHashcatLines:
		return FormatHashcatLines, nil
	case FormatJSONL, "json":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("unknown output format %q (want hashcat or jsonl)", s)
}

// NewFormatter returns the Formatter for f writing to w.
func NewFormatter(f Format, w io.Writer) Formatter {
	if f == FormatJSONL {
		return NewJSONFormatter(w)
	}
	return NewHashcatFormatter(w)
}

// HashcatFormatter writes one hashcat line per result.
type HashcatFormatter struct {
	w io.Writer
}

func NewHashcatFormatter(w io.Writer) *HashcatFormatter {
	return &HashcatFormatter{w: w}
}

func (f *HashcatFormatter) Write(res *Result) error {
	_, err := io.WriteString(f.w, res.Hashcat+"\n")
	return err
}

func (f *HashcatFormatter) Flush() error { return nil }

// JSONFormatter writes JSONL.
type JSONFormatter struct {
	enc *json.Encoder
}

func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

func (f *JSONFormatter) Write(res *Result) error {
	return f.enc.Encode(res)
}

func (f *JSONFormatter) Flush() error { return nil }
