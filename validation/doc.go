// Package validation checks configuration and request structures and reports
// failures as errors.AppError values with per-field details.
//
// # Struct Tag Validation
//
//	type Options struct {
//	    BaseURL string `mapstructure:"base_url" validate:"required,url"`
//	}
//	err := validation.Validate(opts)
//
// Field names in messages follow the mapstructure (then yaml, then json) tag
// so they match configuration keys.
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Custom(len(scopes) > 0, "apis.orders.scopes", "at least one scope is required")
//	err := v.Validate()
package validation
