package content

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/teranos/cadence/errors"
)

// importDocument is the mapping form of an import file:
//
//	artifacts:
//	  - product_id: p-1
//	    product_name: Glow Serum
//	    template_type: grwm
//	    hook: "..."
type importDocument struct {
	Artifacts []*Artifact `yaml:"artifacts"`
}

// DecodeYAML reads artifacts from a YAML stream. Each document is either a
// mapping with an `artifacts` list or a bare list of artifacts. Every
// artifact is validated; the first invalid one fails the whole import.
func DecodeYAML(r io.Reader) ([]*Artifact, error) {
	dec := yaml.NewDecoder(r)

	var out []*Artifact
	for doc := 0; ; doc++ {
		var node yaml.Node
		err := dec.Decode(&node)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse YAML document %d", doc)
		}
		if len(node.Content) == 0 {
			continue
		}

		var batch []*Artifact
		switch node.Content[0].Kind {
		case yaml.SequenceNode:
			err = node.Decode(&batch)
		case yaml.MappingNode:
			var d importDocument
			err = node.Decode(&d)
			batch = d.Artifacts
		default:
			err = errors.Newf("line %d: expected a list or an artifacts mapping", node.Content[0].Line)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode YAML document %d", doc)
		}
		out = append(out, batch...)
	}

	for i, a := range out {
		if a == nil {
			return nil, errors.Newf("artifact %d is empty", i)
		}
		if err := a.Validate(); err != nil {
			return nil, errors.Wrapf(err, "artifact %d", i)
		}
	}
	return out, nil
}
