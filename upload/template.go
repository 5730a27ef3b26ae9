package upload

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TemplateContext holds the values a storage string template can reference.
type TemplateContext struct {
	File        File
	EntityID    string
	Path        string // collection path of the entity
	PropertyKey string
}

// ResolveStorageString renders a storage path or file name template:
//
//	{file}         file name with extension
//	{file.name}    file name without extension
//	{file.ext}     extension without the dot
//	{file.type}    content type
//	{entityId}     id of the entity being edited
//	{propertyKey}  key of the property
//	{path}         collection path
//	{rand}         random token, new on every call
func ResolveStorageString(tmpl string, tc TemplateContext) string {
	if !strings.Contains(tmpl, "{") {
		return tmpl
	}
	var name, base, ext, ctype string
	if tc.File != nil {
		name = tc.File.Name()
		ext = strings.TrimPrefix(filepath.Ext(name), ".")
		base = strings.TrimSuffix(name, filepath.Ext(name))
		ctype = tc.File.ContentType()
	}
	r := strings.NewReplacer(
		"{file}", name,
		"{file.name}", base,
		"{file.ext}", ext,
		"{file.type}", ctype,
		"{entityId}", tc.EntityID,
		"{propertyKey}", tc.PropertyKey,
		"{path}", strings.Trim(tc.Path, "/"),
		"{rand}", strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
	)
	return r.Replace(tmpl)
}
