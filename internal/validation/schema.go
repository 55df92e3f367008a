package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const colorPattern = `^(#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}))?$`

const linkItem = `{
	"type": "object",
	"additionalProperties": false,
	"required": ["text", "url"],
	"properties": {
		"id": {"type": "string", "maxLength": 100},
		"text": {"type": "string", "maxLength": 200},
		"url": {"type": "string", "maxLength": 2048}
	}
}`

var templateSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"subject": {"type": "string", "maxLength": 500},
		"body": {"type": "string", "maxLength": 20000},
		"html": {"type": ["string", "null"], "maxLength": 200000},
		"useHtml": {"type": ["boolean", "null"]},
		"design": {
			"type": ["object", "null"],
			"additionalProperties": false,
			"properties": {
				"title": {"type": "string", "maxLength": 300},
				"greeting": {"type": "string", "maxLength": 300},
				"primaryColor": {"type": "string", "pattern": "` + colorPattern + `"},
				"background": {"type": "string", "pattern": "` + colorPattern + `"},
				"footerNote": {"type": "string", "maxLength": 1000},
				"ctas": {"type": ["array", "null"], "maxItems": 5, "items": ` + linkItem + `},
				"footerLinks": {"type": ["array", "null"], "maxItems": 10, "items": ` + linkItem + `}
			}
		}
	}
}`

var templatesSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"signup": ` + templateSchema + `,
		"approval": ` + templateSchema + `,
		"rejection": ` + templateSchema + `,
		"moreInfo": ` + templateSchema + `,
		"resubmissionConfirmation": ` + templateSchema + `
	}
}`

const sharedBrandingSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"logoUrl": {"type": ["string", "null"], "maxLength": 2048},
		"bannerUrl": {"type": ["string", "null"], "maxLength": 2048},
		"socialLinks": {
			"type": ["array", "null"],
			"maxItems": 20,
			"items": {
				"type": "object",
				"additionalProperties": false,
				"properties": {
					"id": {"type": "string", "maxLength": 100},
					"name": {"type": "string", "maxLength": 100},
					"url": {"type": "string", "maxLength": 2048},
					"iconUrl": {"type": "string", "maxLength": 2048}
				}
			}
		}
	}
}`

const cooldownSchema = `{
	"type": "object",
	"required": ["days"],
	"properties": {
		"days": {"type": "integer", "minimum": 1, "maximum": 365}
	}
}`

const statusUpdateSchema = `{
	"type": "object",
	"required": ["status"],
	"properties": {
		"status": {"type": "string", "enum": ["pending", "approved", "rejected", "moreInfo"]},
		"requiredInformation": {"type": "string", "maxLength": 2000},
		"merchantMessage": {"type": "string", "maxLength": 5000}
	}
}`

const publicSubmissionSchema = `{
	"type": "object",
	"required": ["data"],
	"properties": {
		"pub": {"type": "string"},
		"data": {"type": "object", "maxProperties": 200}
	}
}`

// Validator checks request bodies against compiled JSON schemas.
type Validator struct {
	templates    *gojsonschema.Schema
	branding     *gojsonschema.Schema
	cooldown     *gojsonschema.Schema
	statusUpdate *gojsonschema.Schema
	submission   *gojsonschema.Schema
}

// New compiles the schemas.
func New() (*Validator, error) {
	compile := func(name, src string) (*gojsonschema.Schema, error) {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", name, err)
		}
		return schema, nil
	}

	v := &Validator{}
	var err error
	if v.templates, err = compile("templates", templatesSchema); err != nil {
		return nil, err
	}
	if v.branding, err = compile("shared branding", sharedBrandingSchema); err != nil {
		return nil, err
	}
	if v.cooldown, err = compile("cooldown", cooldownSchema); err != nil {
		return nil, err
	}
	if v.statusUpdate, err = compile("status update", statusUpdateSchema); err != nil {
		return nil, err
	}
	if v.submission, err = compile("submission", publicSubmissionSchema); err != nil {
		return nil, err
	}
	return v, nil
}

// MustNew is New for package initialisation.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Templates validates a template set keyed by kind.
func (v *Validator) Templates(doc []byte) []string { return validate(v.templates, doc) }

// SharedBranding validates a shared branding record.
func (v *Validator) SharedBranding(doc []byte) []string { return validate(v.branding, doc) }

// Cooldown validates a cooldown update.
func (v *Validator) Cooldown(doc []byte) []string { return validate(v.cooldown, doc) }

// StatusUpdate validates a signup request status change.
func (v *Validator) StatusUpdate(doc []byte) []string { return validate(v.statusUpdate, doc) }

// Submission validates a public signup submission.
func (v *Validator) Submission(doc []byte) []string { return validate(v.submission, doc) }

// validate returns one message per violation; nil means the document is valid.
func validate(schema *gojsonschema.Schema, doc []byte) []string {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return []string{"invalid JSON document"}
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		field := strings.TrimPrefix(desc.Field(), "(root).")
		if field == "(root)" {
			errs[i] = desc.Description()
			continue
		}
		errs[i] = fmt.Sprintf("%s: %s", field, desc.Description())
	}
	return errs
}
