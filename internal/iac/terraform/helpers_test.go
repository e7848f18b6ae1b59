package terraform

import (
	"testing/fstest"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

// overrideStore puts templates in front of the bundled defaults
func overrideStore(files map[string]string) TemplateStore {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys["tpl/"+name+TemplateExt] = &fstest.MapFile{Data: []byte(body)}
	}
	return NewLayeredStore(FSTier{FS: fsys, Root: "tpl", Label: "test"}, DefaultTier())
}

func mustMapping(provider scan.Provider, category string) Mapping {
	m, ok := MappingFor(provider, category)
	if !ok {
		panic("no mapping for " + category)
	}
	return m
}
