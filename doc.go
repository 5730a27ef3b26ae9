package firecms

// Package firecms provides the core of a headless CMS admin:
//
// - A shared model for collections, schemas, properties and storage (types.go)
// - A stable error model via *Error (code, path, message, cause)
// - Schema resolution with per-path overrides under registry/
// - File upload fields with ordered, reorderable entries under upload/
// - Collection path lookup and routing helpers under navigation/
//
// Design policy:
// - Keep only the shared model in the root package; behavior lives in sub-packages.
// - Put storage backends under storage/, declaration loading under collections/,
//   and the CLI under cmd/firecms.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  bundle, err := collections.LoadFile("collections.yaml")
//  reg := registry.New()
//  bundle.Apply(reg)
//  cfg, err := reg.Resolve("products/42/locales", "")
//
//  field, err := upload.NewField(prop, upload.Options{Storage: src, OnChange: save})
//  err = field.Drop(ctx, upload.NewMemoryFile("a.png", data, "image/png"))
//
