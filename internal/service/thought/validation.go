package thought

import (
	"errors"
	"strings"

	"thoughtbox/internal/config"
	thoughtSvc "thoughtbox/internal/domain/services/thought"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// validateCreateThought validates a create thought request. The title may
// be empty; it defaults to DefaultTitle.
func validateCreateThought(req *thoughtSvc.CreateThoughtRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Length(0, config.MaxThoughtTitleLength)),
		validation.Field(&req.Description, validation.Length(0, config.MaxDescriptionLength)),
	)
}

// validateRename validates a rename request
func validateRename(req *thoughtSvc.RenameThoughtRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxThoughtTitleLength),
			validation.By(notBlank),
		),
	)
	if err != nil {
		return err
	}
	return validation.ValidateStruct(&req.Description,
		validation.Field(&req.Description.Value, validation.Length(0, config.MaxDescriptionLength)),
	)
}

func notBlank(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return errors.New("must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}
