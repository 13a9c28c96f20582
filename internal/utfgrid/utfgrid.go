// Package utfgrid converts between linear feature keys and the character codes
// stored in UTF grids. Codes skip '"' (34) and '\' (92) so grid rows stay valid
// JSON strings without escaping.
package utfgrid

// ResolveCode decodes a grid character code to its linear key.
func ResolveCode(key int) int {
	if key >= 93 {
		key--
	}
	if key >= 35 {
		key--
	}
	return key - 32
}

// EncodeCode is the inverse of ResolveCode for keys >= 0.
func EncodeCode(key int) int {
	code := key + 32
	if code >= 34 {
		code++
	}
	if code >= 92 {
		code++
	}
	return code
}
