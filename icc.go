package dezoomify

import (
	"bytes"
	"encoding/binary"
)

// ICC/EXIF extraction and re-injection is hand-written against the JPEG and
// PNG container formats: no available library performs this (the image
// libraries at hand are decode-oriented — see DESIGN.md), and the
// segment/chunk layouts involved are small and fixed, so a bespoke
// implementation is the appropriate "no suitable library" case.

const jpegICCMarker = "ICC_PROFILE\x00"

// extractJPEGICCProfile reassembles an ICC profile embedded in one or more
// APP2 "ICC_PROFILE" segments of a JPEG file, per the ICC.1:2010 spec §B.4.
func extractJPEGICCProfile(data []byte) []byte {
	type chunk struct {
		seq, total int
		data       []byte
	}
	var chunks []chunk
	for _, seg := range jpegAPPSegments(data, 0xE2) {
		if len(seg) < len(jpegICCMarker)+2 || string(seg[:len(jpegICCMarker)]) != jpegICCMarker {
			continue
		}
		rest := seg[len(jpegICCMarker):]
		seq, total := int(rest[0]), int(rest[1])
		chunks = append(chunks, chunk{seq: seq, total: total, data: rest[2:]})
	}
	if len(chunks) == 0 {
		return nil
	}
	out := make([][]byte, len(chunks)+1)
	for _, c := range chunks {
		if c.seq >= 1 && c.seq < len(out) {
			out[c.seq] = c.data
		}
	}
	var buf bytes.Buffer
	for _, part := range out[1:] {
		buf.Write(part)
	}
	if buf.Len() == 0 {
		return nil
	}
	return buf.Bytes()
}

const jpegEXIFMarker = "Exif\x00\x00"

// extractJPEGEXIF returns the raw EXIF TIFF blob from the first APP1 segment
// that carries one.
func extractJPEGEXIF(data []byte) []byte {
	for _, seg := range jpegAPPSegments(data, 0xE1) {
		if len(seg) > len(jpegEXIFMarker) && string(seg[:len(jpegEXIFMarker)]) == jpegEXIFMarker {
			return append([]byte(nil), seg[len(jpegEXIFMarker):]...)
		}
	}
	return nil
}

// jpegAPPSegments walks the JPEG marker stream and returns the payload of
// every APPn segment (marker byte marker, e.g. 0xE1 for APP1) encountered
// before the first scan (SOS / 0xDA).
func jpegAPPSegments(data []byte, marker byte) [][]byte {
	var segments [][]byte
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			break
		}
		m := data[i+1]
		if m == 0xD8 || m == 0xD9 {
			i += 2
			continue
		}
		if m == 0xDA {
			break // start of scan: no more metadata markers follow
		}
		if i+4 > len(data) {
			break
		}
		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if length < 2 || i+2+length > len(data) {
			break
		}
		payload := data[i+4 : i+2+length]
		if m == marker {
			segments = append(segments, payload)
		}
		i += 2 + length
	}
	return segments
}

// buildJPEGICCSegments splits an ICC profile into one or more APP2 segments
// following the 65519-byte-per-chunk convention used by every ICC-aware
// JPEG encoder.
func buildJPEGICCSegments(profile []byte) [][]byte {
	const maxChunk = 65519 - len(jpegICCMarker) - 2
	if len(profile) == 0 {
		return nil
	}
	numChunks := (len(profile) + maxChunk - 1) / maxChunk
	segments := make([][]byte, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := i * maxChunk
		end := start + maxChunk
		if end > len(profile) {
			end = len(profile)
		}
		var seg bytes.Buffer
		seg.WriteString(jpegICCMarker)
		seg.WriteByte(byte(i + 1))
		seg.WriteByte(byte(numChunks))
		seg.Write(profile[start:end])
		segments = append(segments, seg.Bytes())
	}
	return segments
}

func writeJPEGAPPSegment(w *bytes.Buffer, marker byte, payload []byte) {
	w.WriteByte(0xFF)
	w.WriteByte(marker)
	length := len(payload) + 2
	var lenBytes [2]byte
	binary.BigEndian.PutUint16(lenBytes[:], uint16(length))
	w.Write(lenBytes[:])
	w.Write(payload)
}

// injectJPEGMetadata rewrites a freshly-encoded JPEG byte stream to insert
// APP1 (EXIF) and APP2 (ICC) segments right after the SOI marker, which is
// where every encoder and reader expects to find them.
func injectJPEGMetadata(jpegBytes []byte, icc, exif []byte) []byte {
	if len(icc) == 0 && len(exif) == 0 {
		return jpegBytes
	}
	if len(jpegBytes) < 2 || jpegBytes[0] != 0xFF || jpegBytes[1] != 0xD8 {
		return jpegBytes
	}
	var out bytes.Buffer
	out.Write(jpegBytes[:2]) // SOI
	if len(exif) > 0 {
		payload := append([]byte(jpegEXIFMarker), exif...)
		writeJPEGAPPSegment(&out, 0xE1, payload)
	}
	for _, seg := range buildJPEGICCSegments(icc) {
		writeJPEGAPPSegment(&out, 0xE2, seg)
	}
	out.Write(jpegBytes[2:])
	return out.Bytes()
}

// PNG iCCP chunk handling.

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func extractPNGICCProfile(data []byte) []byte {
	if len(data) < 8 || !bytes.Equal(data[:8], pngSignature) {
		return nil
	}
	pos := 8
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		typ := string(data[pos+4 : pos+8])
		bodyStart := pos + 8
		bodyEnd := bodyStart + length
		if bodyEnd+4 > len(data) {
			break
		}
		if typ == "iCCP" {
			body := data[bodyStart:bodyEnd]
			nul := bytes.IndexByte(body, 0)
			if nul < 0 || nul+2 > len(body) {
				return nil
			}
			// body[nul+1] is the compression method (always 0 == zlib);
			// the profile itself is zlib-compressed and is inflated here
			// via inflatePNGProfile.
			return inflatePNGProfile(body[nul+2:])
		}
		if typ == "IDAT" {
			break // iCCP, if present, always precedes IDAT
		}
		pos = bodyEnd + 4
	}
	return nil
}

// injectPNGICCProfile inserts an iCCP chunk (compressed per the PNG spec)
// right after the IHDR chunk of an already-encoded PNG byte stream.
func injectPNGICCProfile(pngBytes []byte, profile []byte) []byte {
	if len(profile) == 0 || len(pngBytes) < 8 || !bytes.Equal(pngBytes[:8], pngSignature) {
		return pngBytes
	}
	pos := 8
	length := int(binary.BigEndian.Uint32(pngBytes[pos : pos+4]))
	ihdrEnd := pos + 8 + length + 4 // length+type+data+crc
	if ihdrEnd > len(pngBytes) {
		return pngBytes
	}
	compressed := deflatePNGProfile(profile)
	var body bytes.Buffer
	body.WriteString("icc\x00") // profile name; "icc" is a conventional choice
	body.WriteByte(0)           // compression method: zlib/deflate
	body.Write(compressed)

	chunk := buildPNGChunk("iCCP", body.Bytes())

	var out bytes.Buffer
	out.Write(pngBytes[:ihdrEnd])
	out.Write(chunk)
	out.Write(pngBytes[ihdrEnd:])
	return out.Bytes()
}

func buildPNGChunk(typ string, body []byte) []byte {
	var out bytes.Buffer
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], uint32(len(body)))
	out.Write(lenBytes[:])
	out.WriteString(typ)
	out.Write(body)
	crc := pngCRC(append([]byte(typ), body...))
	var crcBytes [4]byte
	binary.BigEndian.PutUint32(crcBytes[:], crc)
	out.Write(crcBytes[:])
	return out.Bytes()
}
