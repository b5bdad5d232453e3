package memory

import (
	"errors"
	"fmt"

	poolerrors "github.com/23skdu/nodepool/internal/errors"
)

// Common errors
var (
	// ErrOutOfMemory is the only failure an allocation entry point reports.
	ErrOutOfMemory = errors.New("memory: out of memory")

	// ErrInvalidConfig wraps every Config validation failure.
	ErrInvalidConfig = errors.New("memory: invalid pool config")

	// ErrConfigMismatch is returned by a Registry when a pool already exists for the
	// (Align, MaxBlockBytes) pair with a different chunk multiplier.
	ErrConfigMismatch = errors.New("memory: pool already registered with different chunk multiplier")

	// ErrPointerElement rejects adapter element types the garbage collector would need to scan.
	ErrPointerElement = errors.New("memory: element type contains pointers")

	// ErrZeroSizeElement rejects zero-sized adapter element types.
	ErrZeroSizeElement = errors.New("memory: element type has zero size")

	// ErrForeignBlock is the panic value for a pool-path deallocation of memory the pool does not own.
	ErrForeignBlock = errors.New("memory: block does not belong to this pool")

	// ErrMmapUnsupported is returned by NewMmapAllocator on platforms without anonymous mappings.
	ErrMmapUnsupported = errors.New("memory: mmap allocator unsupported on this platform")
)

// outOfMemory builds an error satisfying errors.Is(err, ErrOutOfMemory) and carrying the
// operation context.
func outOfMemory(op, pool string, bytes int, cause error) error {
	var se *poolerrors.StructuredError
	if cause != nil && !errors.Is(cause, ErrOutOfMemory) {
		se = poolerrors.WrapMemoryError(fmt.Errorf("%w: %w", ErrOutOfMemory, cause), op, "allocation failed")
	} else if cause != nil {
		se = poolerrors.WrapMemoryError(cause, op, "allocation failed")
	} else {
		se = poolerrors.WrapMemoryError(ErrOutOfMemory, op, "allocation failed")
	}
	se.WithContext("bytes", bytes)
	if pool != "" {
		se.WithContext("pool", pool)
	}
	return se
}

func invalidConfig(field, reason string, value int) error {
	return poolerrors.WrapConfigurationError(
		fmt.Errorf("%w: %s %s", ErrInvalidConfig, field, reason),
		"validate", "invalid pool config",
	).WithContext(field, value)
}
