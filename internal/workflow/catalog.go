package workflow

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Workflow names known to the gateway.
const (
	Summarize = "summarize"
	TSVUpload = "tsvUpload"
)

var (
	// ErrUnknownSpecies is returned when no annotation is configured for a species.
	ErrUnknownSpecies = errors.New("unknown species")
	// ErrUnknownWorkflow is returned when a workflow name is not in the catalogue.
	ErrUnknownWorkflow = errors.New("unknown workflow")
)

// UnknownSpeciesError reports a species without an annotation together with
// the species the catalogue does support. It matches ErrUnknownSpecies.
type UnknownSpeciesError struct {
	Species   string
	Supported []string
}

func (e *UnknownSpeciesError) Error() string {
	return fmt.Sprintf("%v: %q (supported: %s)", ErrUnknownSpecies, e.Species, strings.Join(e.Supported, ", "))
}

func (e *UnknownSpeciesError) Is(target error) bool {
	return target == ErrUnknownSpecies
}

// Definition describes one workflow script and the static inputs it needs.
type Definition struct {
	// Source is the workflow file name, relative to the workflow directory.
	Source string `yaml:"source"`
	// Namespace prefixes every input key, e.g. "geneSummarization".
	Namespace string `yaml:"namespace"`
	// Static inputs, keyed without the namespace.
	Static map[string]string `yaml:"static"`
}

// Catalog maps workflow names to definitions and species to annotation files.
type Catalog struct {
	Workflows map[string]Definition `yaml:"workflows"`
	Species   map[string]string     `yaml:"species"`
}

// DefaultCatalog returns the built-in catalogue.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Workflows: map[string]Definition{
			Summarize: {
				Source:    "rpkm.wdl",
				Namespace: "geneSummarization",
				Static: map[string]string{
					"summarizeGenesScript": "./summarize_genes.R",
					"downloadFilesScript":  "./downloadDriveFiles.py",
					"chrsScript":           "./chrs.py",
					"credentials":          "./data/credentials.json",
					"token":                "./data/token.pickle",
					"pairedEndScript":      "./paired.sh",
					"insertDataScript":     "./insertData.py",
					"barEmailScript":       "./bar_email.py",
				},
			},
			TSVUpload: {
				Source:    "tsvUpload.wdl",
				Namespace: "tsvUpload",
				Static: map[string]string{
					"insertDataScript": "./insertData.py",
					"conversionScript": "./kallistoToRpkm.R",
				},
			},
		},
		Species: map[string]string{
			"Hsapiens":  "./data/hg38.ensGene.gtf",
			"Athaliana": "./data/Araport11_GFF3_genes_transposons.201606.gtf",
			"Mmusculus": "./data/GCF_000001635.27_GRCm39_genomic.gtf",
		},
	}
}

// LoadCatalog returns the default catalogue overlaid with the YAML file at
// path. An empty path yields the defaults unchanged.
func LoadCatalog(path string) (*Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow catalog: %w", err)
	}

	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse workflow catalog: %w", err)
	}

	for name, def := range override.Workflows {
		if def.Source == "" {
			return nil, fmt.Errorf("workflow %q: source is required", name)
		}
		if def.Namespace == "" {
			def.Namespace = name
		}
		cat.Workflows[name] = def
	}
	for species, gtf := range override.Species {
		cat.Species[species] = gtf
	}

	return cat, nil
}

// Workflow looks up a definition by name.
func (c *Catalog) Workflow(name string) (Definition, error) {
	def, ok := c.Workflows[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownWorkflow, name)
	}
	return def, nil
}

// Annotation returns the GTF path for species.
func (c *Catalog) Annotation(species string) (string, error) {
	gtf, ok := c.Species[species]
	if !ok {
		return "", &UnknownSpeciesError{Species: species, Supported: c.SpeciesNames()}
	}
	return gtf, nil
}

// SpeciesNames returns the configured species, sorted.
func (c *Catalog) SpeciesNames() []string {
	names := make([]string, 0, len(c.Species))
	for name := range c.Species {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Inputs builds the namespaced input document for def: static inputs first,
// then caller values, which win on collision.
func (d Definition) Inputs(values map[string]any) map[string]any {
	doc := make(map[string]any, len(d.Static)+len(values))
	for k, v := range d.Static {
		doc[d.Namespace+"."+k] = v
	}
	for k, v := range values {
		doc[d.Namespace+"."+k] = v
	}
	return doc
}
