package bulk

import "strings"

// OutputName computes the file-name stem for item, substituting any
// {key} placeholders a user-supplied template names from item.TemplateVars,
// falling back to item.DefaultFilenameStem when no template is set,
// mirroring original_source/src/lib.rs::generate_bulk_output_name.
func OutputName(item Item, template string) string {
	if template == "" {
		return item.DefaultFilenameStem
	}
	name := template
	for k, v := range item.TemplateVars {
		name = strings.ReplaceAll(name, "{"+k+"}", v)
	}
	return name
}
