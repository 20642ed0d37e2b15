package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names so messages line up with the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and cross-field rules. It returns an
// *InvalidCriteriaError listing every offending field.
func (c Criteria) Validate() error {
	var fields []FieldError

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate criteria: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fieldPath(fe.Namespace()),
				Message: fieldMessage(fe),
			})
		}
	}

	if pr := c.PriceRange; pr != nil && pr.Min != nil && pr.Max != nil && *pr.Min > *pr.Max {
		fields = append(fields, FieldError{Field: "price_range", Message: "min must not exceed max"})
	}

	if area := c.DrawnArea(); area != nil {
		hasCircle := area.Circle != nil
		hasPolygon := len(area.Polygon) > 0
		if hasCircle == hasPolygon {
			fields = append(fields, FieldError{Field: "location.area", Message: "exactly one of circle or polygon is required"})
		}
	}

	if cm := c.Commute; cm != nil && strings.TrimSpace(cm.Destination.Address) == "" && cm.Destination.Coordinates == nil {
		fields = append(fields, FieldError{Field: "commute.destination", Message: "address or coordinates is required"})
	}

	if len(fields) > 0 {
		return &InvalidCriteriaError{Fields: fields}
	}
	return nil
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
