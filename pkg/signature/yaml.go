package signature

// yamlSignature is the intermediate struct for parsing the YAML signature
// format. Exactly one of Pattern (literal text) or Hex is set.
type yamlSignature struct {
	Name                string   `yaml:"name"`
	ID                  string   `yaml:"id"`
	Pattern             string   `yaml:"pattern,omitempty"`
	Hex                 string   `yaml:"hex,omitempty"`
	Description         string   `yaml:"description,omitempty"`
	Examples            []string `yaml:"examples,omitempty"`
	HexExamples         []string `yaml:"hex_examples,omitempty"`
	NegativeExamples    []string `yaml:"negative_examples,omitempty"`
	HexNegativeExamples []string `yaml:"hex_negative_examples,omitempty"`
	References          []string `yaml:"references,omitempty"`
	Categories          []string `yaml:"categories,omitempty"`
}

// yamlSignaturesFile represents the top-level structure of a signatures
// YAML file.
type yamlSignaturesFile struct {
	Signatures []yamlSignature `yaml:"signatures"`
}
