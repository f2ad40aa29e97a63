//go:build !darwin

package permissions

// CheckMicrophone always reports Authorized; access is governed by the
// audio server on these platforms.
func CheckMicrophone() Status {
	return Authorized
}

// EnsureMicrophone is a no-op on non-macOS platforms.
func EnsureMicrophone() error {
	return nil
}
