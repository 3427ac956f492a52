package filestore

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"polaris/internal/config"
	"polaris/internal/domain"
)

var noSlashPattern = regexp.MustCompile(`^[^/]+$`)

// validateNodeName checks a file or folder name: non-empty, within the column
// limit, no slashes. Names are plain segments; the tree shape lives in
// parent_id, not in the name.
func validateNodeName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Length(1, config.MaxNodeNameLength),
		validation.Match(noSlashPattern).Error("name cannot contain slashes"),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// validateFileContent caps inline content. Larger payloads must come in as
// base64 and go through blob storage.
func validateFileContent(content string) error {
	if len(content) > config.MaxFileContentLength {
		return fmt.Errorf("%w: content exceeds %d bytes", domain.ErrValidation, config.MaxFileContentLength)
	}
	return nil
}
