package formskema

// Package formskema provides:
//
// - Composable validation for hierarchical form state (Field leaves, Form composites)
// - Concurrent validation of every child, followed by form-level validators
// - An auto-validation cascade: a composed form revalidates once every child has passed
// - A stable error report via Issues (JSON Pointer, code, message)
//
// A Form infers its mode from the subject it is given: a struct pointer or
// *Object is an object, a slice is an array and a map is a map. Children are
// re-read from the subject on every operation, so the caller keeps ownership
// of the collection.
//
// Design policy:
// - Keep the composition protocol (Validatable, Sink) in the root package.
// - Place reusable rules under rules/, message catalogs under i18n/,
//   declarative definitions under formdef/ and the CLI under cmd/formskema.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  type signup struct {
//      Password *formskema.Field[string] `form:"password"`
//      Confirm  *formskema.Field[string] `form:"confirm"`
//  }
//  s := &signup{Password: formskema.NewField("", rules.MinLen(8)), Confirm: formskema.NewField("")}
//  f := formskema.MustNew(s, formskema.WithCompose()).Validators(matchPasswords)
//  out, err := f.Validate(ctx)
//  iss := formskema.Collect(f)
//
