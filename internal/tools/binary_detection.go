package tools

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/codefionn/krim/internal/consts"
)

// Extensions whose raw bytes are useless to the model.
var binaryExtensions = map[string]struct{}{
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".a": {}, ".lib": {},
	".o": {}, ".obj": {}, ".wasm": {}, ".class": {}, ".pyc": {},
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".ico": {}, ".webp": {},
	".pdf": {}, ".zip": {}, ".gz": {}, ".tar": {}, ".7z": {}, ".jar": {},
	".sqlite": {}, ".db": {},
}

func isBinaryExtension(path string) bool {
	_, ok := binaryExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// hasBinaryContent looks for a NUL byte in the first bytes of data.
func hasBinaryContent(data []byte) bool {
	n := len(data)
	if n > consts.BinarySniffBytes {
		n = consts.BinarySniffBytes
	}
	for _, b := range data[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

// isLikelyBinaryFile treats a file as binary by extension, by a NUL byte
// near the start, or when it is not valid UTF-8 text.
func isLikelyBinaryFile(path string, data []byte) bool {
	return isBinaryExtension(path) || hasBinaryContent(data) || !utf8.Valid(data)
}
