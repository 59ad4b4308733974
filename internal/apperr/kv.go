package apperr

// KV engine error codes (spec.md §7).
const (
	KVDomain = "kv"

	Success Code = iota
	KeyNotFound
	DataCorrupted
	IoError
	Invalid
)

func init() {
	registerDomain(KVDomain, map[Code]string{
		Success:       "success",
		KeyNotFound:   "key not found",
		DataCorrupted: "data corrupted",
		IoError:       "I/O error",
		Invalid:       "invalid argument",
	})
}

// KV wraps parent as a kv-domain CodeError.
func KV(code Code, parent error) *CodeError {
	return New(KVDomain, code, parent)
}
