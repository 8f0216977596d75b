package ldt

import "fmt"

// ValidateBinName checks the bin-name rules independent of whether the
// descriptor exists yet.
func ValidateBinName(name string) error {
	if name == "" {
		return ErrNullBinName
	}
	if len(name) > MaxBinNameLen {
		return &BinNameError{Name: name, Kind: ErrBinNameTooLong}
	}
	return nil
}

// ValidateDescriptor checks a loaded PropertyMap/LsetMap pair for integrity:
// Magic must match, LdtType must be "LSET", and the stored version
// must not exceed what this engine understands.
func ValidateDescriptor(p *PropertyMap) error {
	if p.Magic != Magic {
		return ErrBinDamaged
	}
	if p.LdtType != LdtType {
		return ErrBinDamaged
	}
	if p.Version > Version {
		return fmt.Errorf("%w: stored=%d engine=%d", ErrVersionMismatch, p.Version, Version)
	}
	return nil
}
