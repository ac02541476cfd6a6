package trainconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/deepserve/image-classifier-api/pkg/config"
)

// Conf a merged training configuration, group -> key -> value. Values carry
// the JSON scalar types (string, bool, float64, []interface{}).
type Conf map[string]map[string]interface{}

func (c Conf) value(group, key string) (interface{}, bool) {
	g, ok := c[group]
	if !ok {
		return nil, false
	}
	v, ok := g[key]
	return v, ok
}

func (c Conf) str(group, key, fallback string) string {
	if v, ok := c.value(group, key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

func (c Conf) intval(group, key string, fallback int) int {
	if v, ok := c.value(group, key); ok {
		if f, ok := asFloat(v); ok {
			return int(f)
		}
	}
	return fallback
}

func (c Conf) boolval(group, key string, fallback bool) bool {
	if v, ok := c.value(group, key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// ModelName the backbone architecture name
func (c Conf) ModelName() string {
	return c.str("model", "modelname", "Xception")
}

// ImageSize the square network input side length
func (c Conf) ImageSize() int {
	return c.intval("model", "image_size", 224)
}

// NumClasses 0 means infer from classes.txt
func (c Conf) NumClasses() int {
	return c.intval("model", "num_classes", 0)
}

// UseMulticrop average predictions over multiple crops at test time
func (c Conf) UseMulticrop() bool {
	return c.boolval("testing", "use_multicrop", false)
}

// PreprocessMode the input normalization mode of the configured backbone
func (c Conf) PreprocessMode() string {
	if mode, ok := Backbones[c.ModelName()]; ok {
		return mode
	}
	return "tf"
}

// Save persist conf to <dir>/conf.json for parsing and <dir>/conf.txt for
// human reading.
func Save(conf Conf, dir string) error {
	data, err := json.MarshalIndent(conf, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, config.ConfFileName), data, 0644); err != nil {
		return err
	}

	txt, err := os.Create(filepath.Join(dir, "conf.txt"))
	if err != nil {
		return err
	}
	defer txt.Close()
	fmt.Fprintf(txt, "%-25s%-30s%-30s \n", "group", "key", "value")
	fmt.Fprintln(txt, rule('=', 75))
	groups := make([]string, 0, len(conf))
	for group := range conf {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	for _, group := range groups {
		keys := make([]string, 0, len(conf[group]))
		for key := range conf[group] {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(txt, "%-25s%-30s%-15v \n", group, key, conf[group][key])
		}
		fmt.Fprintln(txt, rule('-', 75))
	}
	return nil
}

func rule(ch byte, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ch
	}
	return string(b)
}

// Load read a persisted conf.json
func Load(path string) (Conf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Conf
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return conf, nil
}
