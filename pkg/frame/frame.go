// Package frame implements the AES-256-CTR codec for telecommand (TC) and
// telemetry (TM) frames exchanged with the spacecraft.
//
// A frame on the wire is:
//
//	[CSP 4B][SOF1][SOF2][CTRL][TIMESTAMP 4B LE][SEQ 2B LE][SAT_ID][GND_ID]
//	[QOS][SA_ID][DA_ID][RM_ID][TC/TM_ID 2B][EXT_HDR_LEN][EXT_HDR_DATA]
//	[CO_ID 2B][LEN 2B LE][DATA LEN bytes][CRC][AUTH 32B][EOF]
//
// Only DATA and the single CRC byte are ciphered. The CSP header, the fixed
// header up to LEN, the 32-byte AUTH tail, and the EOF byte pass through
// untouched, so encrypt and decrypt are length-preserving.
package frame

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Compiled-in payload keys. K0 is the default; K1 is selected when the
// extended header data byte is 1.
const (
	key0Hex = "754272407753446f542d5f6a4c74515e4e24363041333555504f4d77543d5774"
	key1Hex = "552451675e6f5e6771456c535e78652665517850623365723643264768266a6d"
)

const (
	cspLen  = 4  // CSP header bytes
	authLen = 32 // AUTH tail bytes
	eofLen  = 1  // EOF byte
)

// kind selects the header layout. TC and TM frames carry the same fields but
// at different payload offsets.
type kind int

const (
	kindTC kind = iota
	kindTM
)

// layout holds the payload byte offsets of the fields needed for nonce
// derivation and for locating the ciphered region. Offsets are relative to
// the payload, i.e. the frame after the CSP header.
type layout struct {
	tsOff     int // timestamp, 4 bytes
	seqOff    int // sequence number, 2 bytes LE
	satOff    int // satellite ID
	srcOff    int // source ID
	dstOff    int // destination ID
	idOff     int // TC/TM ID, 2 bytes
	extOff    int // extended header data byte (key selector)
	lenOff    int // data length, 2 bytes LE
	dataStart int // first data byte
}

var layouts = map[kind]layout{
	kindTC: {tsOff: 3, seqOff: 7, satOff: 9, srcOff: 12, dstOff: 13, idOff: 15, extOff: 18, lenOff: 19, dataStart: 21},
	kindTM: {tsOff: 3, seqOff: 7, satOff: 9, srcOff: 11, dstOff: 12, idOff: 14, extOff: 17, lenOff: 20, dataStart: 22},
}

var (
	key0 []byte
	key1 []byte
)

func init() {
	key0, _ = hex.DecodeString(key0Hex)
	key1, _ = hex.DecodeString(key1Hex)
}

// EncryptTC ciphers the data+CRC region of a telecommand frame. The returned
// slice is a new allocation of the same length as the input.
func EncryptTC(f []byte) ([]byte, error) {
	return transform(f, kindTC)
}

// DecryptTC is the inverse of EncryptTC. CTR mode is symmetric, so the same
// keystream pass restores the original bytes.
func DecryptTC(f []byte) ([]byte, error) {
	return transform(f, kindTC)
}

// EncryptTM ciphers the data+CRC region of a telemetry frame.
func EncryptTM(f []byte) ([]byte, error) {
	return transform(f, kindTM)
}

// DecryptTM deciphers the data+CRC region of a telemetry frame.
func DecryptTM(f []byte) ([]byte, error) {
	return transform(f, kindTM)
}

// EncryptTCHex is EncryptTC over a hex string. Spaces are stripped and the
// result is lowercase, matching the format the bridge logs and transmits.
func EncryptTCHex(frameHex string) (string, error) {
	return transformHex(frameHex, kindTC)
}

// DecryptTMHex is DecryptTM over a hex string.
func DecryptTMHex(frameHex string) (string, error) {
	return transformHex(frameHex, kindTM)
}

func transformHex(frameHex string, k kind) (string, error) {
	frameHex = strings.ToLower(strings.ReplaceAll(frameHex, " ", ""))
	raw, err := hex.DecodeString(frameHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	out, err := transform(raw, k)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(out), nil
}

// transform runs the CTR pass over the frame's data+CRC region.
func transform(f []byte, k kind) ([]byte, error) {
	l := layouts[k]

	minLen := cspLen + l.dataStart + 1 + authLen + eofLen
	if len(f) < minLen {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrFrameTooShort, len(f), minLen)
	}

	payload := f[cspLen : len(f)-authLen-eofLen]

	dataLen := int(binary.LittleEndian.Uint16(payload[l.lenOff : l.lenOff+2]))
	crcIdx := l.dataStart + dataLen
	if crcIdx >= len(payload) {
		return nil, fmt.Errorf("%w: data length %d points outside payload of %d bytes",
			ErrLengthOutOfRange, dataLen, len(payload))
	}

	iv := deriveIV(payload, l)

	key := key0
	if payload[l.extOff] == 1 {
		key = key1
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	out := make([]byte, len(f))
	copy(out, f)

	region := out[cspLen+l.dataStart : cspLen+crcIdx+1]
	cipher.NewCTR(block, iv).XORKeyStream(region, region)

	return out, nil
}

// deriveIV builds the 16-byte CTR counter for a frame. The nonce input is
// TS ∥ SEQ ∥ SRC ∥ 00 ∥ DST ∥ 00 ∥ ID ∥ SAT ∥ 00, hashed with SHA-256. The
// sequence number's parity picks the digest half: even takes the first 16
// bytes, odd the last 16. SEQ is little-endian on the wire and its value is
// read as such for the parity test.
func deriveIV(payload []byte, l layout) []byte {
	nonce := make([]byte, 0, 15)
	nonce = append(nonce, payload[l.tsOff:l.tsOff+4]...)
	nonce = append(nonce, payload[l.seqOff:l.seqOff+2]...)
	nonce = append(nonce, payload[l.srcOff], 0x00)
	nonce = append(nonce, payload[l.dstOff], 0x00)
	nonce = append(nonce, payload[l.idOff:l.idOff+2]...)
	nonce = append(nonce, payload[l.satOff], 0x00)

	digest := sha256.Sum256(nonce)

	seq := binary.LittleEndian.Uint16(payload[l.seqOff : l.seqOff+2])
	if seq%2 == 0 {
		return digest[:16]
	}
	return digest[16:]
}
