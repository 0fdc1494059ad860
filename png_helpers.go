package dezoomify

import (
	"bytes"
	"compress/zlib"
	"hash/crc32"
	"io"
)

func pngCRC(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func deflatePNGProfile(profile []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write(profile)
	_ = w.Close()
	return buf.Bytes()
}

func inflatePNGProfile(compressed []byte) []byte {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil
	}
	return out
}
