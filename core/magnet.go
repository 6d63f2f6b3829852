package core

// Magnet URL grammar. Two forms share the `magnet:?` scheme: the
// whitened-CBL URL produced by the whitening engine, and a plain
// file-receipt URL for unwhitened stores. Unknown query parameters are
// ignored on parse.

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const magnetScheme = "magnet:?"

// FileReceiptMagnet is the parsed form of a no-whitening file-receipt URL.
type FileReceiptMagnet struct {
	ReceiptID    string
	FileName     string
	OriginalSize uint64
	Blocks       []BlockInfo
}

// WhitenedCBLMagnet is the parsed form of a whitened-CBL magnet URL.
type WhitenedCBLMagnet struct {
	BlockSize int
	B1        Checksum
	B2        Checksum
	P1        []Checksum
	P2        []Checksum
	Encrypted bool
}

func joinHex(ids []Checksum) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.Hex()
	}
	return strings.Join(parts, ",")
}

// GenerateWhitenedMagnetURL builds the `xt=urn:brightchain:cbl` form. p1/p2
// may be nil; encrypted appends `enc=1` when true.
func GenerateWhitenedMagnetURL(blockSize int, b1, b2 Checksum, p1, p2 []Checksum, encrypted bool) string {
	var sb strings.Builder
	sb.WriteString(magnetScheme)
	sb.WriteString("xt=urn:brightchain:cbl")
	fmt.Fprintf(&sb, "&bs=%d", blockSize)
	fmt.Fprintf(&sb, "&b1=%s", b1.Hex())
	fmt.Fprintf(&sb, "&b2=%s", b2.Hex())
	if len(p1) > 0 {
		fmt.Fprintf(&sb, "&p1=%s", joinHex(p1))
	}
	if len(p2) > 0 {
		fmt.Fprintf(&sb, "&p2=%s", joinHex(p2))
	}
	if encrypted {
		sb.WriteString("&enc=1")
	}
	return sb.String()
}

// GenerateFileReceiptMagnetURL builds the `xt=urn:brightchain:<receiptId>`
// form for a store that did not whiten its CBL.
func GenerateFileReceiptMagnetURL(receiptID, fileName string, originalSize uint64, blocks []BlockInfo) string {
	var sb strings.Builder
	sb.WriteString(magnetScheme)
	fmt.Fprintf(&sb, "xt=urn:brightchain:%s", receiptID)
	fmt.Fprintf(&sb, "&dn=%s", url.QueryEscape(fileName))
	fmt.Fprintf(&sb, "&xl=%d", originalSize)
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = fmt.Sprintf("%s:%d", b.ID, b.Size)
	}
	fmt.Fprintf(&sb, "&blocks=%s", strings.Join(parts, ","))
	return sb.String()
}

func parseMagnetQuery(raw string) (url.Values, error) {
	if !strings.HasPrefix(raw, magnetScheme) {
		return nil, fmt.Errorf("%w: magnet url must start with %q", ErrInvalidFormat, magnetScheme)
	}
	values, err := url.ParseQuery(strings.TrimPrefix(raw, magnetScheme))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return values, nil
}

func parseHexList(s string) ([]Checksum, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]Checksum, len(parts))
	for i, p := range parts {
		c, err := ParseChecksum(p)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// Sizes are 32-bit unsigned on the wire.
func parseNonNegativeInt(s, field string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a non-negative 32-bit integer: %v", ErrInvalidFormat, field, err)
	}
	return n, nil
}

// ParseWhitenedMagnetURL parses a `xt=urn:brightchain:cbl` magnet URL,
// failing with ErrInvalidFormat on any missing required parameter,
// malformed hex id, or non-integer block size. Unknown parameters are
// ignored.
func ParseWhitenedMagnetURL(raw string) (WhitenedCBLMagnet, error) {
	values, err := parseMagnetQuery(raw)
	if err != nil {
		return WhitenedCBLMagnet{}, err
	}
	if values.Get("xt") != "urn:brightchain:cbl" {
		return WhitenedCBLMagnet{}, fmt.Errorf("%w: xt must be urn:brightchain:cbl", ErrInvalidFormat)
	}
	bsStr := values.Get("bs")
	if bsStr == "" {
		return WhitenedCBLMagnet{}, fmt.Errorf("%w: missing bs parameter", ErrInvalidFormat)
	}
	bs, err := parseNonNegativeInt(bsStr, "bs")
	if err != nil {
		return WhitenedCBLMagnet{}, err
	}
	b1Str, b2Str := values.Get("b1"), values.Get("b2")
	if b1Str == "" || b2Str == "" {
		return WhitenedCBLMagnet{}, fmt.Errorf("%w: missing b1 or b2 parameter", ErrInvalidFormat)
	}
	b1, err := ParseChecksum(b1Str)
	if err != nil {
		return WhitenedCBLMagnet{}, fmt.Errorf("%w: b1: %v", ErrInvalidFormat, err)
	}
	b2, err := ParseChecksum(b2Str)
	if err != nil {
		return WhitenedCBLMagnet{}, fmt.Errorf("%w: b2: %v", ErrInvalidFormat, err)
	}
	p1, err := parseHexList(values.Get("p1"))
	if err != nil {
		return WhitenedCBLMagnet{}, fmt.Errorf("%w: p1: %v", ErrInvalidFormat, err)
	}
	p2, err := parseHexList(values.Get("p2"))
	if err != nil {
		return WhitenedCBLMagnet{}, fmt.Errorf("%w: p2: %v", ErrInvalidFormat, err)
	}
	return WhitenedCBLMagnet{
		BlockSize: int(bs),
		B1:        b1,
		B2:        b2,
		P1:        p1,
		P2:        p2,
		Encrypted: values.Get("enc") == "1",
	}, nil
}

// ParseFileReceiptMagnetURL parses a `xt=urn:brightchain:<receiptId>` magnet
// URL, failing with ErrInvalidFormat on any missing required parameter or
// malformed block-list entry.
func ParseFileReceiptMagnetURL(raw string) (FileReceiptMagnet, error) {
	values, err := parseMagnetQuery(raw)
	if err != nil {
		return FileReceiptMagnet{}, err
	}
	xt := values.Get("xt")
	const prefix = "urn:brightchain:"
	if !strings.HasPrefix(xt, prefix) || xt == prefix+"cbl" {
		return FileReceiptMagnet{}, fmt.Errorf("%w: xt must be urn:brightchain:<receiptId>", ErrInvalidFormat)
	}
	receiptID := strings.TrimPrefix(xt, prefix)

	fileName := values.Get("dn")
	if fileName == "" {
		return FileReceiptMagnet{}, fmt.Errorf("%w: missing dn parameter", ErrInvalidFormat)
	}
	xlStr := values.Get("xl")
	if xlStr == "" {
		return FileReceiptMagnet{}, fmt.Errorf("%w: missing xl parameter", ErrInvalidFormat)
	}
	originalSize, err := parseNonNegativeInt(xlStr, "xl")
	if err != nil {
		return FileReceiptMagnet{}, err
	}
	blocksStr := values.Get("blocks")
	if blocksStr == "" {
		return FileReceiptMagnet{}, fmt.Errorf("%w: missing blocks parameter", ErrInvalidFormat)
	}
	entries := strings.Split(blocksStr, ",")
	blocks := make([]BlockInfo, len(entries))
	for i, e := range entries {
		idStr, sizeStr, ok := strings.Cut(e, ":")
		if !ok {
			return FileReceiptMagnet{}, fmt.Errorf("%w: blocks entry %q missing ':'", ErrInvalidFormat, e)
		}
		if _, err := ParseChecksum(idStr); err != nil {
			return FileReceiptMagnet{}, fmt.Errorf("%w: blocks[%d].id: %v", ErrInvalidFormat, i, err)
		}
		size, err := parseNonNegativeInt(sizeStr, "blocks size")
		if err != nil {
			return FileReceiptMagnet{}, err
		}
		blocks[i] = BlockInfo{ID: idStr, Size: uint32(size)}
	}
	return FileReceiptMagnet{
		ReceiptID:    receiptID,
		FileName:     fileName,
		OriginalSize: originalSize,
		Blocks:       blocks,
	}, nil
}
