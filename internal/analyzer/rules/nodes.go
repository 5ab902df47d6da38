package rules

import pg_query "github.com/pganalyze/pg_query_go/v6"

// alterCommands returns the ALTER TABLE sub-commands of the given type.
func alterCommands(alt *pg_query.AlterTableStmt, subtype pg_query.AlterTableType) []*pg_query.AlterTableCmd {
	var cmds []*pg_query.AlterTableCmd

	for _, n := range alt.Cmds {
		cmd, ok := n.Node.(*pg_query.Node_AlterTableCmd)
		if !ok || cmd.AlterTableCmd.Subtype != subtype {
			continue
		}

		cmds = append(cmds, cmd.AlterTableCmd)
	}

	return cmds
}

func columnDef(cmd *pg_query.AlterTableCmd) *pg_query.ColumnDef {
	if cmd.Def == nil {
		return nil
	}

	n, ok := cmd.Def.Node.(*pg_query.Node_ColumnDef)
	if !ok {
		return nil
	}

	return n.ColumnDef
}

// findConstraint returns the first constraint of the given type on a column.
// pg_query_go stores DEFAULT as a CONSTR_DEFAULT constraint whose RawExpr is the expression.
func findConstraint(colDef *pg_query.ColumnDef, contype pg_query.ConstrType) *pg_query.Constraint {
	for _, c := range colDef.Constraints {
		cn, ok := c.Node.(*pg_query.Node_Constraint)
		if ok && cn.Constraint.Contype == contype {
			return cn.Constraint
		}
	}

	return nil
}

// tableColumns lists the column names declared in a CREATE TABLE.
func tableColumns(create *pg_query.CreateStmt) []string {
	var cols []string

	for _, elt := range create.TableElts {
		if cd, ok := elt.Node.(*pg_query.Node_ColumnDef); ok {
			cols = append(cols, cd.ColumnDef.Colname)
		}
	}

	return cols
}

// indexColumns lists the plain column names of an index, in key order.
// Expression keys are returned as "".
func indexColumns(idx *pg_query.IndexStmt) []string {
	cols := make([]string, 0, len(idx.IndexParams))

	for _, p := range idx.IndexParams {
		elem, ok := p.Node.(*pg_query.Node_IndexElem)
		if !ok {
			cols = append(cols, "")
			continue
		}

		cols = append(cols, elem.IndexElem.Name)
	}

	return cols
}
