package trainconfig

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/deepserve/image-classifier-api/pkg/apierror"
)

type ParamType string

const (
	TypeStr   ParamType = "str"
	TypeInt   ParamType = "int"
	TypeFloat ParamType = "float"
	TypeBool  ParamType = "bool"
	TypeList  ParamType = "list"
)

// Param one training parameter descriptor. Keys are unique across groups so
// user overrides address a parameter by key alone.
type Param struct {
	Group   string
	Key     string
	Type    ParamType
	Default interface{}
	Choices []interface{}
	Min     *float64
	Max     *float64
	Help    string
}

type Schema struct {
	params []*Param
	byKey  map[string]*Param
}

// Backbones the supported pretrained architectures mapped to their input
// normalization mode.
var Backbones = map[string]string{
	"DenseNet121":       "torch",
	"DenseNet169":       "torch",
	"DenseNet201":       "torch",
	"InceptionResNetV2": "tf",
	"InceptionV3":       "tf",
	"MobileNet":         "tf",
	"NASNetLarge":       "tf",
	"NASNetMobile":      "tf",
	"Xception":          "tf",
	"ResNet50":          "caffe",
	"VGG16":             "caffe",
	"VGG19":             "caffe",
}

func fptr(v float64) *float64 { return &v }

// DefaultSchema the static training parameter table. Built once at startup,
// looked up by key.
func DefaultSchema() *Schema {
	backboneChoices := make([]interface{}, 0, len(Backbones))
	for name := range Backbones {
		backboneChoices = append(backboneChoices, name)
	}
	params := []*Param{
		{Group: "model", Key: "modelname", Type: TypeStr, Default: "Xception", Choices: backboneChoices,
			Help: "Pretrained backbone architecture for transfer learning"},
		{Group: "model", Key: "image_size", Type: TypeInt, Default: 224, Min: fptr(32), Max: fptr(1024),
			Help: "Side length of the square network input"},
		{Group: "model", Key: "num_classes", Type: TypeInt, Default: 0, Min: fptr(0),
			Help: "Number of output classes, 0 means infer from classes.txt"},
		{Group: "training", Key: "epochs", Type: TypeInt, Default: 15, Min: fptr(0),
			Help: "Number of training epochs"},
		{Group: "training", Key: "batch_size", Type: TypeInt, Default: 16, Min: fptr(1),
			Help: "Samples per gradient update"},
		{Group: "training", Key: "initial_lr", Type: TypeFloat, Default: 0.001, Min: fptr(0),
			Help: "Initial learning rate"},
		{Group: "training", Key: "lr_step_decay", Type: TypeFloat, Default: 0.1, Min: fptr(0), Max: fptr(1),
			Help: "Learning rate multiplier applied at each schedule milestone"},
		{Group: "training", Key: "lr_step_schedule", Type: TypeList, Default: []interface{}{0.7, 0.9},
			Help: "Epoch fractions at which the learning rate decays"},
		{Group: "training", Key: "l2_reg", Type: TypeFloat, Default: 0.0001, Min: fptr(0),
			Help: "L2 regularization strength, 0 disables"},
		{Group: "training", Key: "use_validation", Type: TypeBool, Default: true,
			Help: "Hold out a validation split during training"},
		{Group: "training", Key: "use_early_stopping", Type: TypeBool, Default: false,
			Help: "Stop training when the validation loss stops improving"},
		{Group: "training", Key: "ckpt_freq", Type: TypeFloat, Default: 0.0, Min: fptr(0), Max: fptr(1),
			Help: "Checkpoint frequency as a fraction of total epochs, 0 saves only the final model"},
		{Group: "testing", Key: "use_multicrop", Type: TypeBool, Default: false,
			Help: "Average predictions over ten crops at test time"},
		{Group: "monitor", Key: "use_remote", Type: TypeBool, Default: false,
			Help: "Report training metrics to the remote monitor"},
		{Group: "dataset", Key: "val_fraction", Type: TypeFloat, Default: 0.1, Min: fptr(0), Max: fptr(1),
			Help: "Fraction of the dataset reserved for validation"},
	}
	byKey := make(map[string]*Param, len(params))
	for _, p := range params {
		byKey[p.Key] = p
	}
	return &Schema{params: params, byKey: byKey}
}

// Params descriptors in declaration order
func (s *Schema) Params() []*Param {
	return s.params
}

func (s *Schema) Lookup(key string) (*Param, bool) {
	p, ok := s.byKey[key]
	return p, ok
}

// Defaults a fresh Conf holding every parameter's default value
func (s *Schema) Defaults() Conf {
	conf := make(Conf)
	for _, p := range s.params {
		if _, ok := conf[p.Group]; !ok {
			conf[p.Group] = make(map[string]interface{})
		}
		conf[p.Group][p.Key] = p.Default
	}
	return conf
}

// ApplyOverrides decode user overrides (JSON-encoded strings keyed by
// parameter name) on top of the defaults. Unknown keys are an input error.
func (s *Schema) ApplyOverrides(overrides map[string]string) (Conf, error) {
	conf := s.Defaults()
	for key, raw := range overrides {
		p, ok := s.byKey[key]
		if !ok {
			return nil, apierror.New(apierror.InvalidConfig, "unknown training parameter %q", key)
		}
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, apierror.New(apierror.InvalidConfig,
				"parameter %q: value %q is not valid JSON: %v", key, raw, err)
		}
		conf[p.Group][p.Key] = value
	}
	return conf, nil
}

// Check validate a merged configuration against the declared type, choices
// and range constraints.
func (s *Schema) Check(conf Conf) error {
	for _, p := range s.params {
		group, ok := conf[p.Group]
		if !ok {
			return apierror.New(apierror.InvalidConfig, "missing parameter group %q", p.Group)
		}
		value, ok := group[p.Key]
		if !ok {
			return apierror.New(apierror.InvalidConfig, "missing parameter %q", p.Key)
		}
		if err := checkValue(p, value); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(p *Param, value interface{}) error {
	switch p.Type {
	case TypeStr:
		if _, ok := value.(string); !ok {
			return typeErr(p, value)
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return typeErr(p, value)
		}
	case TypeInt:
		f, ok := asFloat(value)
		if !ok || f != math.Trunc(f) {
			return typeErr(p, value)
		}
		if err := checkRange(p, f); err != nil {
			return err
		}
	case TypeFloat:
		f, ok := asFloat(value)
		if !ok {
			return typeErr(p, value)
		}
		if err := checkRange(p, f); err != nil {
			return err
		}
	case TypeList:
		if _, ok := value.([]interface{}); !ok {
			return typeErr(p, value)
		}
	}
	if len(p.Choices) > 0 {
		for _, choice := range p.Choices {
			if value == choice {
				return nil
			}
		}
		return apierror.New(apierror.InvalidConfig,
			"parameter %q: value %v is not among the allowed choices %v", p.Key, value, p.Choices)
	}
	return nil
}

func checkRange(p *Param, f float64) error {
	if p.Min != nil && f < *p.Min {
		return apierror.New(apierror.InvalidConfig, "parameter %q: value %v is below the minimum %v", p.Key, f, *p.Min)
	}
	if p.Max != nil && f > *p.Max {
		return apierror.New(apierror.InvalidConfig, "parameter %q: value %v is above the maximum %v", p.Key, f, *p.Max)
	}
	return nil
}

func typeErr(p *Param, value interface{}) error {
	return apierror.New(apierror.InvalidConfig, "parameter %q: value %v is not of type %s", p.Key, value, p.Type)
}

func asFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Describe the parameter table in the API's descriptor shape:
// {key: {default, help, required}} with the default JSON-encoded.
func (s *Schema) Describe() map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(s.params))
	for _, p := range s.params {
		help := p.Help
		help += fmt.Sprintf("\nGroup name: **%s**", p.Group)
		if len(p.Choices) > 0 {
			help += fmt.Sprintf("\nChoices: %v", p.Choices)
		}
		help += fmt.Sprintf("\nType: %s", p.Type)
		def, _ := json.Marshal(p.Default)
		out[p.Key] = map[string]interface{}{
			"default":  string(def),
			"help":     help,
			"required": false,
		}
	}
	return out
}
