package mysql

import (
	"fmt"
	"strconv"
	"strings"

	"smf/internal/core"
	"smf/internal/diff"
)

func (g *Generator) tableOptions(t *core.Table) string {
	mo := t.Options.MySQL
	if mo == nil {
		return ""
	}

	var parts []string
	if engine := strings.TrimSpace(mo.Engine); engine != "" {
		parts = append(parts, "ENGINE="+engine)
	}
	if charset := strings.TrimSpace(mo.Charset); charset != "" {
		parts = append(parts, "DEFAULT CHARSET="+charset)
	}
	if collate := strings.TrimSpace(mo.Collate); collate != "" {
		parts = append(parts, "COLLATE="+collate)
	}

	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func (g *Generator) columnDefinition(c *core.Column) string {
	var parts []string

	parts = append(parts, g.QuoteIdentifier(c.Name), c.TargetType)
	parts = g.addNullability(parts, c)
	parts = g.addAutoAttributes(parts, c)
	parts = g.addDefault(parts, c)

	return strings.Join(parts, " ")
}

func (g *Generator) addNullability(parts []string, c *core.Column) []string {
	if c.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	return parts
}

func (g *Generator) addAutoAttributes(parts []string, c *core.Column) []string {
	if c.AutoIncrement {
		parts = append(parts, "AUTO_INCREMENT")
	}
	return parts
}

func (g *Generator) addDefault(parts []string, c *core.Column) []string {
	if def := strings.TrimSpace(c.DefaultExpr); def != "" {
		parts = append(parts, "DEFAULT", g.formatValue(def))
	}
	return parts
}

// CreateIndex generates a standalone CREATE INDEX statement for the DDL
// Emitter's post-data-load index build (spec.md §4.3: indexes and foreign
// keys are applied after bulk data load to avoid slowing INSERTs).
func (g *Generator) CreateIndex(table *core.Table, idx *core.Index) string {
	return g.createIndex(g.QuoteIdentifier(table.Name), idx)
}

func (g *Generator) createIndex(table string, idx *core.Index) string {
	if idx == nil {
		return ""
	}

	name := strings.TrimSpace(idx.Name)
	if name == "" {
		return ""
	}

	cols := g.formatIndexColumns(idx.Columns)
	if idx.Unique {
		return fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s %s;", g.QuoteIdentifier(name), table, cols)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s %s;", g.QuoteIdentifier(name), table, cols)
}

func (g *Generator) indexDefinitionInline(idx *core.Index) string {
	cols := g.formatIndexColumns(idx.Columns)
	name := strings.TrimSpace(idx.Name)
	if name == "" {
		return ""
	}

	if idx.Unique {
		return fmt.Sprintf("UNIQUE KEY %s %s", g.QuoteIdentifier(name), cols)
	}
	return fmt.Sprintf("KEY %s %s", g.QuoteIdentifier(name), cols)
}

func (g *Generator) constraintDefinition(c *core.Constraint) string {
	cols := g.formatColumns(c.Columns)

	switch c.Type {
	case core.ConstraintPrimaryKey:
		return fmt.Sprintf("PRIMARY KEY %s", cols)
	case core.ConstraintUnique:
		if name := strings.TrimSpace(c.Name); name != "" {
			return fmt.Sprintf("CONSTRAINT %s UNIQUE KEY %s", g.QuoteIdentifier(name), cols)
		}
		return fmt.Sprintf("UNIQUE KEY %s", cols)
	default:
		return ""
	}
}

// AddForeignKey generates the ALTER TABLE ... ADD CONSTRAINT ... FOREIGN KEY
// statement the DDL Emitter applies after the referenced table has data
// loaded and has been validated for orphans (spec.md §4.9).
func (g *Generator) AddForeignKey(table *core.Table, fk *core.Constraint) string {
	return g.addForeignKeyConstraint(g.QuoteIdentifier(table.Name), fk, g.formatColumns(fk.Columns))
}

func (g *Generator) addConstraint(table string, c *core.Constraint) string {
	if c == nil {
		return ""
	}

	cols := g.formatColumns(c.Columns)

	switch c.Type {
	case core.ConstraintPrimaryKey:
		return g.addPrimaryKeyConstraint(table, cols)
	case core.ConstraintUnique:
		return g.addUniqueConstraint(table, c.Name, cols)
	case core.ConstraintForeignKey:
		return g.addForeignKeyConstraint(table, c, cols)
	default:
		return ""
	}
}

func (g *Generator) addPrimaryKeyConstraint(table, cols string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY %s;", table, cols)
}

func (g *Generator) addUniqueConstraint(table, name, cols string) string {
	if name := strings.TrimSpace(name); name != "" {
		return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE %s;", table, g.QuoteIdentifier(name), cols)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD UNIQUE %s;", table, cols)
}

func (g *Generator) addForeignKeyConstraint(table string, c *core.Constraint, cols string) string {
	if len(c.Columns) == 0 || strings.TrimSpace(c.ReferencedTable) == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(128)
	sb.WriteString("ALTER TABLE ")
	sb.WriteString(table)
	sb.WriteString(" ADD ")
	if name := strings.TrimSpace(c.Name); name != "" {
		sb.WriteString("CONSTRAINT ")
		sb.WriteString(g.QuoteIdentifier(name))
		sb.WriteString(" ")
	}
	sb.WriteString("FOREIGN KEY ")
	sb.WriteString(cols)
	sb.WriteString(" REFERENCES ")
	sb.WriteString(g.QuoteIdentifier(c.ReferencedTable))
	sb.WriteString(" ")
	sb.WriteString(g.formatColumns(c.ReferencedColumns))
	if del := strings.TrimSpace(string(c.OnDelete)); del != "" {
		sb.WriteString(" ON DELETE ")
		sb.WriteString(del)
	}
	if upd := strings.TrimSpace(string(c.OnUpdate)); upd != "" {
		sb.WriteString(" ON UPDATE ")
		sb.WriteString(upd)
	}
	sb.WriteString(";")
	return sb.String()
}

func (g *Generator) dropConstraint(table string, c *core.Constraint) string {
	if c == nil {
		return ""
	}

	switch c.Type {
	case core.ConstraintPrimaryKey:
		return g.dropPrimaryKey(table)
	case core.ConstraintForeignKey:
		return g.dropForeignKey(table, c)
	case core.ConstraintUnique:
		return g.dropUnique(table, c)
	default:
		return ""
	}
}

func (g *Generator) dropPrimaryKey(table string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP PRIMARY KEY;", table)
}

func (g *Generator) dropForeignKey(table string, c *core.Constraint) string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", table, g.QuoteIdentifier(name))
	}
	cols := strings.Join(c.Columns, ",")
	if cols != "" {
		cols = " (" + cols + ")"
	}
	return fmt.Sprintf("-- cannot drop unnamed FOREIGN KEY%s on %s", cols, table)
}

func (g *Generator) dropUnique(table string, c *core.Constraint) string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return fmt.Sprintf("ALTER TABLE %s DROP INDEX %s;", table, g.QuoteIdentifier(name))
	}
	cols := strings.Join(c.Columns, ",")
	if cols != "" {
		cols = " (" + cols + ")"
	}
	return fmt.Sprintf("-- cannot drop unnamed UNIQUE%s on %s", cols, table)
}

func (g *Generator) alterOption(table string, opt *diff.TableOptionChange) string {
	name := strings.ToUpper(strings.TrimSpace(opt.Name))
	value := strings.TrimSpace(opt.New)

	if value == "" {
		return ""
	}

	switch name {
	case "ENGINE":
		return fmt.Sprintf("ALTER TABLE %s ENGINE=%s;", table, value)
	case "CHARSET":
		return fmt.Sprintf("ALTER TABLE %s DEFAULT CHARSET=%s;", table, value)
	case "COLLATE":
		return fmt.Sprintf("ALTER TABLE %s COLLATE=%s;", table, value)
	default:
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return fmt.Sprintf("ALTER TABLE %s %s=%s;", table, name, value)
		}
		return fmt.Sprintf("ALTER TABLE %s %s=%s;", table, name, g.QuoteString(value))
	}
}
