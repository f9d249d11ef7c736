package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Catalog is an immutable, validated DAG of task templates.
//
// Templates are held in a dependency-respecting order: every template appears
// after all of its dependencies. When the declared order already satisfies this,
// it is kept as-is. A Catalog is safe for concurrent read access.
type Catalog struct {
	// templates in dependency order
	templates []TaskTemplate

	// index maps template names to their position in templates
	index map[string]int

	// dependents maps template names to the names that depend on them
	dependents map[string][]string

	// levels groups template names by topological depth
	levels [][]string

	maxDay int
}

// NewCatalog validates templates and builds a catalog.
//
// Validation rejects:
//   - an empty template list
//   - empty or duplicate names, empty categories, days below 1
//   - dependencies on unknown templates or on the template itself
//   - any cycle (direct or indirect)
func NewCatalog(templates []TaskTemplate) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, NewValidationError("catalog has no task templates", nil)
	}

	declared := make([]TaskTemplate, len(templates))
	position := make(map[string]int, len(templates))
	for i, t := range templates {
		if strings.TrimSpace(t.Name) == "" {
			return nil, NewValidationError(fmt.Sprintf("task template %d has empty name", i+1), nil)
		}
		if _, exists := position[t.Name]; exists {
			return nil, NewValidationError(fmt.Sprintf("duplicate task template name: %s", t.Name), nil)
		}
		if strings.TrimSpace(t.Category) == "" {
			return nil, NewValidationError(fmt.Sprintf("task template %s has empty category", t.Name), nil)
		}
		if t.Day < 1 {
			return nil, NewValidationError(
				fmt.Sprintf("task template %s has day %d; days start at 1", t.Name, t.Day), nil)
		}
		position[t.Name] = i
		declared[i] = cloneTemplate(t)
	}

	dependents := make(map[string][]string, len(declared))
	for _, t := range declared {
		seen := make(map[string]bool, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			if dep == t.Name {
				return nil, NewValidationError(fmt.Sprintf("task template %s depends on itself", t.Name), nil).
					WithCode(ErrCodeCycle)
			}
			if _, exists := position[dep]; !exists {
				return nil, NewValidationError(
					fmt.Sprintf("task template %s depends on non-existent template %s", t.Name, dep), nil)
			}
			if seen[dep] {
				return nil, NewValidationError(
					fmt.Sprintf("task template %s lists dependency %s twice", t.Name, dep), nil)
			}
			seen[dep] = true
			dependents[dep] = append(dependents[dep], t.Name)
		}
	}

	if cycle := findCycle(declared, position, dependents); cycle != nil {
		return nil, NewValidationError(
			fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")), ErrCycle).
			WithCode(ErrCodeCycle)
	}

	ordered, levels := stableTopologicalOrder(declared, position, dependents)

	c := &Catalog{
		templates:  ordered,
		index:      make(map[string]int, len(ordered)),
		dependents: dependents,
		levels:     levels,
	}
	for i, t := range ordered {
		c.index[t.Name] = i
		if t.Day > c.maxDay {
			c.maxDay = t.Day
		}
	}
	return c, nil
}

// findCycle uses depth-first search over dependents to find a circular dependency.
// It returns the cycle path, or nil if the graph is acyclic.
func findCycle(templates []TaskTemplate, position map[string]int, dependents map[string][]string) []string {
	visited := make(map[string]bool, len(templates))
	onStack := make(map[string]bool, len(templates))

	var visit func(name string, path []string) []string
	visit = func(name string, path []string) []string {
		visited[name] = true
		onStack[name] = true
		path = append(path, name)

		for _, next := range dependents[name] {
			if !visited[next] {
				if cycle := visit(next, path); cycle != nil {
					return cycle
				}
			} else if onStack[next] {
				for i, n := range path {
					if n == next {
						cycle := append([]string{}, path[i:]...)
						return append(cycle, next)
					}
				}
			}
		}

		onStack[name] = false
		return nil
	}

	for _, t := range templates {
		if !visited[t.Name] {
			if cycle := visit(t.Name, nil); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// stableTopologicalOrder runs Kahn's algorithm, always releasing the earliest
// declared ready template first, and records topological levels.
func stableTopologicalOrder(
	templates []TaskTemplate,
	position map[string]int,
	dependents map[string][]string,
) ([]TaskTemplate, [][]string) {
	inDegree := make(map[string]int, len(templates))
	depth := make(map[string]int, len(templates))
	ready := make([]int, 0, len(templates))
	for i, t := range templates {
		inDegree[t.Name] = len(t.DependsOn)
		if inDegree[t.Name] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]TaskTemplate, 0, len(templates))
	var levels [][]string
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]

		t := templates[next]
		ordered = append(ordered, t)

		level := depth[t.Name]
		for len(levels) <= level {
			levels = append(levels, nil)
		}
		levels[level] = append(levels[level], t.Name)

		for _, dependent := range dependents[t.Name] {
			if depth[dependent] < level+1 {
				depth[dependent] = level + 1
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, position[dependent])
			}
		}
	}
	return ordered, levels
}

func cloneTemplate(t TaskTemplate) TaskTemplate {
	deps := make([]string, len(t.DependsOn))
	copy(deps, t.DependsOn)
	t.DependsOn = deps
	return t
}

// Templates returns a copy of the templates in dependency order.
func (c *Catalog) Templates() []TaskTemplate {
	out := make([]TaskTemplate, len(c.templates))
	for i, t := range c.templates {
		out[i] = cloneTemplate(t)
	}
	return out
}

// Len returns the number of templates.
func (c *Catalog) Len() int {
	return len(c.templates)
}

// MaxDay returns the largest scheduled day in the catalog.
// It is the minimum number of business days a full close needs.
func (c *Catalog) MaxDay() int {
	return c.maxDay
}

// Lookup returns the template with the given name.
func (c *Catalog) Lookup(name string) (TaskTemplate, bool) {
	i, ok := c.index[name]
	if !ok {
		return TaskTemplate{}, false
	}
	return cloneTemplate(c.templates[i]), true
}

// TemplatesOnDay returns the templates scheduled on a close day, in catalog order.
func (c *Catalog) TemplatesOnDay(day int) []TaskTemplate {
	var out []TaskTemplate
	for _, t := range c.templates {
		if t.Day == day {
			out = append(out, cloneTemplate(t))
		}
	}
	return out
}

// CountThrough returns how many templates are scheduled on or before closeDays.
func (c *Catalog) CountThrough(closeDays int) int {
	n := 0
	for _, t := range c.templates {
		if t.Day <= closeDays {
			n++
		}
	}
	return n
}

// Dependents returns the names of templates that directly depend on name.
func (c *Catalog) Dependents(name string) []string {
	return append([]string(nil), c.dependents[name]...)
}

// Levels returns template names grouped by topological depth.
// Templates on the same level have no dependencies on each other.
func (c *Catalog) Levels() [][]string {
	out := make([][]string, len(c.levels))
	for i, l := range c.levels {
		out[i] = append([]string(nil), l...)
	}
	return out
}

// Depth returns the number of topological levels.
func (c *Catalog) Depth() int {
	return len(c.levels)
}

// ToDOT generates a DOT format representation of the catalog for visualization.
// Templates are clustered by close day; the output can be rendered with Graphviz.
func (c *Catalog) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph CloseCatalog {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	for day := 1; day <= c.maxDay; day++ {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_day_%d {\n", day))
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", DayLabel(day)))
		sb.WriteString("    style=dashed;\n")
		for _, t := range c.templates {
			if t.Day != day {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %q [label=\"%s\\n%s\", fillcolor=\"%s\", style=\"filled,rounded\"];\n",
				t.Name, dotEscape(t.Name), t.Category, categoryColor(t.Category)))
		}
		sb.WriteString("  }\n\n")
	}

	for _, t := range c.templates {
		for _, dep := range t.DependsOn {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", dep, t.Name))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func dotEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// categoryColor returns a fill color for visualizing task categories.
func categoryColor(category string) string {
	switch category {
	case "RECONCILIATION":
		return "lightblue"
	case "REPORTING", "REVIEW":
		return "lightgreen"
	case "ADJUSTMENTS", "ACCRUALS":
		return "khaki"
	case "CLOSE":
		return "lightcoral"
	default:
		return "white"
	}
}
