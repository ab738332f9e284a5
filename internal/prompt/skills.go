package prompt

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SkillFile is one SKILL.md discovered in a skills directory.
type SkillFile struct {
	Path        string
	Name        string
	Description string
	Content     string
}

// SkillBudget bounds skill loading.
type SkillBudget struct {
	MaxFiles      int
	MaxFileBytes  int
	MaxTotalChars int
}

// skillFrontMatter is the optional YAML header of a SKILL.md.
type skillFrontMatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// LoadSkillFiles walks the given directories for SKILL.md files, subject to
// the budget. Directories that don't exist are skipped silently.
func LoadSkillFiles(dirs []string, budget SkillBudget) []SkillFile {
	var skills []SkillFile
	totalChars := 0

	for _, dir := range dirs {
		if budget.MaxFiles > 0 && len(skills) >= budget.MaxFiles {
			break
		}
		filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if budget.MaxFiles > 0 && len(skills) >= budget.MaxFiles {
				return filepath.SkipAll
			}
			if d.IsDir() || d.Name() != "SKILL.md" {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if budget.MaxFileBytes > 0 && info.Size() > int64(budget.MaxFileBytes) {
				return nil
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return nil
			}

			skill := parseSkill(path, string(data))
			if budget.MaxTotalChars > 0 && totalChars+len(skill.Content) > budget.MaxTotalChars {
				return filepath.SkipAll
			}
			totalChars += len(skill.Content)
			skills = append(skills, skill)
			return nil
		})
	}

	return skills
}

// parseSkill splits optional YAML front matter (--- delimited) from the
// skill body. A header that fails to parse is kept as body text.
func parseSkill(path, raw string) SkillFile {
	skill := SkillFile{Path: path, Content: raw}

	rest, ok := strings.CutPrefix(raw, "---\n")
	if !ok {
		return skill
	}
	header, body, ok := strings.Cut(rest, "\n---")
	if !ok {
		return skill
	}

	var meta skillFrontMatter
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return skill
	}

	skill.Name = meta.Name
	skill.Description = meta.Description
	skill.Content = strings.TrimPrefix(strings.TrimPrefix(body, "\n"), "\n")
	return skill
}
