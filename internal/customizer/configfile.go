package customizer

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nosan/embedded-cassandra-sub005/internal/models"
	"github.com/nosan/embedded-cassandra-sub005/internal/settings"
	"github.com/nosan/embedded-cassandra-sub005/internal/version"
)

// ConfigFile patches conf/cassandra.yaml in place on the node tree, so
// comments and key order of the distribution's file survive.
type ConfigFile struct{}

func (ConfigFile) Name() string { return "config-file" }

func (ConfigFile) Applies(version.Version, models.Platform) bool { return true }

func (f ConfigFile) Apply(root string, c Context) error {
	path := filepath.Join(root, "conf", "cassandra.yaml")
	return rewriteFile(f.Name(), path, func(data []byte) ([]byte, error) {
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		if doc.Kind == 0 {
			doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
		}
		if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
			return nil, fmt.Errorf("top level is not a mapping")
		}
		top := doc.Content[0]

		for _, o := range configOverrides(c) {
			if err := setPath(top, o.key, o.value); err != nil {
				return nil, fmt.Errorf("set %s: %w", o.key, err)
			}
		}

		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return nil, fmt.Errorf("encode: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

type override struct {
	key   string
	value any
}

// configOverrides lists derived keys first, then the caller's config
// properties so those win on conflict.
func configOverrides(c Context) []override {
	s := c.Settings
	var out []override
	for _, kind := range s.RequiredPorts() {
		if kind == settings.JMX {
			continue
		}
		p, _ := s.Port(kind)
		out = append(out, override{string(kind), int(p)})
	}
	if settings.RPCSupported(c.Version) {
		out = append(out, override{"start_rpc", s.RPC()})
	}
	out = append(out, override{"start_native_transport", true})
	if addr := s.ListenAddress(); addr != "" {
		out = append(out, override{"listen_address", addr})
	}
	if addr := s.BroadcastAddress(); addr != "" {
		out = append(out, override{"broadcast_address", addr})
	}
	if addr := s.RPCAddress(); addr != "" {
		out = append(out, override{"rpc_address", addr})
	}
	if s.NativeTransportSSL() {
		out = append(out, override{"client_encryption_options.enabled", true})
	}
	if s.StorageSSL() {
		out = append(out, override{"server_encryption_options.internode_encryption", "all"})
	}
	props := s.ConfigProperties()
	for _, key := range s.ConfigKeys() {
		out = append(out, override{key, props[key]})
	}
	return out
}

// setPath sets a dotted key, creating intermediate mappings. Segments that
// are integers index into sequences.
func setPath(node *yaml.Node, key string, value any) error {
	parts := strings.Split(key, ".")
	for i, part := range parts {
		last := i == len(parts)-1
		switch node.Kind {
		case yaml.MappingNode:
			child := lookup(node, part)
			if last {
				encoded, err := encodeValue(value)
				if err != nil {
					return err
				}
				if child == nil {
					node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part}, encoded)
				} else {
					encoded.HeadComment, encoded.LineComment = child.HeadComment, child.LineComment
					*child = *encoded
				}
				return nil
			}
			if child == nil {
				child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
				node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part}, child)
			} else if child.Kind != yaml.MappingNode && child.Kind != yaml.SequenceNode {
				*child = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			}
			node = child
		case yaml.SequenceNode:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node.Content) {
				return fmt.Errorf("segment %q is not an index of a %d element list", part, len(node.Content))
			}
			if last {
				encoded, err := encodeValue(value)
				if err != nil {
					return err
				}
				*node.Content[idx] = *encoded
				return nil
			}
			node = node.Content[idx]
		default:
			return fmt.Errorf("segment %q is not a mapping or list", part)
		}
	}
	return nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func encodeValue(value any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(value); err != nil {
		return nil, err
	}
	return &n, nil
}
