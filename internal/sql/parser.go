package sql

import (
	"strconv"

	"github.com/pkg/errors"
)

// Parser is a recursive-descent parser over a flat token slice, extending
// the teacher's single-statement Parser (internal/sql's original
// NewParser(tokens).Parse() shape) to the full DDL/DML grammar.
type Parser struct {
	tokens []Token
	pos    int
}

// NewParser returns a Parser over tokens.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse dispatches on the leading keyword to produce one Statement.
func (p *Parser) Parse() (Statement, error) {
	tok := p.current()
	if tok.Type != TokenKeyword {
		return nil, errors.Errorf("sql: expected a statement keyword, got %v", tok)
	}

	switch tok.Value {
	case "CREATE":
		return p.parseCreate()
	case "DROP":
		return p.parseDrop()
	case "INSERT":
		return p.parseInsert()
	case "DELETE":
		return p.parseDelete()
	case "UPDATE":
		return p.parseUpdate()
	case "SELECT":
		return p.parseSelect()
	default:
		return nil, errors.Errorf("sql: unsupported statement: %s", tok.Value)
	}
}

func (p *Parser) parseCreate() (Statement, error) {
	if err := p.expect(TokenKeyword, "CREATE"); err != nil {
		return nil, err
	}
	switch p.current().Value {
	case "TABLE":
		return p.parseCreateTable()
	case "INDEX":
		return p.parseCreateIndex()
	default:
		return nil, errors.Errorf("sql: expected TABLE or INDEX after CREATE, got %v", p.current())
	}
}

func (p *Parser) parseCreateTable() (Statement, error) {
	if err := p.expect(TokenKeyword, "TABLE"); err != nil {
		return nil, err
	}
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenLeftParen, "("); err != nil {
		return nil, err
	}

	var cols []ColDef
	for {
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		typTok := p.current()
		if typTok.Type != TokenKeyword {
			return nil, errors.Errorf("sql: expected a column type, got %v", typTok)
		}
		p.advance()

		length := 0
		switch typTok.Value {
		case "INT":
			length = 4
		case "FLOAT":
			length = 4
		case "STRING", "CHAR":
			if err := p.expect(TokenLeftParen, "("); err != nil {
				return nil, err
			}
			n, err := p.number()
			if err != nil {
				return nil, err
			}
			length = n
			if err := p.expect(TokenRightParen, ")"); err != nil {
				return nil, err
			}
		}
		cols = append(cols, ColDef{Name: name, Type: typTok.Value, Len: length})

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}
		break
	}
	if err := p.expect(TokenRightParen, ")"); err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return &CreateTableStmt{Table: table, Cols: cols}, nil
}

func (p *Parser) parseCreateIndex() (Statement, error) {
	if err := p.expect(TokenKeyword, "INDEX"); err != nil {
		return nil, err
	}
	if err := p.expect(TokenKeyword, "ON"); err != nil {
		return nil, err
	}
	table, col, err := p.tableAndColumn()
	if err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return &CreateIndexStmt{Table: table, Column: col}, nil
}

func (p *Parser) parseDrop() (Statement, error) {
	if err := p.expect(TokenKeyword, "DROP"); err != nil {
		return nil, err
	}
	switch p.current().Value {
	case "TABLE":
		p.advance()
		table, err := p.identifier()
		if err != nil {
			return nil, err
		}
		p.optionalSemicolon()
		return &DropTableStmt{Table: table}, nil
	case "INDEX":
		p.advance()
		if err := p.expect(TokenKeyword, "ON"); err != nil {
			return nil, err
		}
		table, col, err := p.tableAndColumn()
		if err != nil {
			return nil, err
		}
		p.optionalSemicolon()
		return &DropIndexStmt{Table: table, Column: col}, nil
	default:
		return nil, errors.Errorf("sql: expected TABLE or INDEX after DROP, got %v", p.current())
	}
}

// tableAndColumn parses `table(col)`, the shape CREATE/DROP INDEX share.
func (p *Parser) tableAndColumn() (string, string, error) {
	table, err := p.identifier()
	if err != nil {
		return "", "", err
	}
	if err := p.expect(TokenLeftParen, "("); err != nil {
		return "", "", err
	}
	col, err := p.identifier()
	if err != nil {
		return "", "", err
	}
	if err := p.expect(TokenRightParen, ")"); err != nil {
		return "", "", err
	}
	return table, col, nil
}

func (p *Parser) parseInsert() (Statement, error) {
	if err := p.expect(TokenKeyword, "INSERT"); err != nil {
		return nil, err
	}
	if err := p.expect(TokenKeyword, "INTO"); err != nil {
		return nil, err
	}
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenKeyword, "VALUES"); err != nil {
		return nil, err
	}
	if err := p.expect(TokenLeftParen, "("); err != nil {
		return nil, err
	}

	var values []Value
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.current().Type == TokenComma {
			p.advance()
			continue
		}
		break
	}
	if err := p.expect(TokenRightParen, ")"); err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return &InsertStmt{Table: table, Values: values}, nil
}

func (p *Parser) parseDelete() (Statement, error) {
	if err := p.expect(TokenKeyword, "DELETE"); err != nil {
		return nil, err
	}
	if err := p.expect(TokenKeyword, "FROM"); err != nil {
		return nil, err
	}
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}
	conds, err := p.optionalWhere()
	if err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return &DeleteStmt{Table: table, Conds: conds}, nil
}

func (p *Parser) parseUpdate() (Statement, error) {
	if err := p.expect(TokenKeyword, "UPDATE"); err != nil {
		return nil, err
	}
	table, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if err := p.expect(TokenKeyword, "SET"); err != nil {
		return nil, err
	}

	var sets []SetClause
	for {
		col, err := p.identifier()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenOperator, "="); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		sets = append(sets, SetClause{Col: col, Val: v})
		if p.current().Type == TokenComma {
			p.advance()
			continue
		}
		break
	}

	conds, err := p.optionalWhere()
	if err != nil {
		return nil, err
	}
	p.optionalSemicolon()
	return &UpdateStmt{Table: table, Sets: sets, Conds: conds}, nil
}

func (p *Parser) parseSelect() (Statement, error) {
	if err := p.expect(TokenKeyword, "SELECT"); err != nil {
		return nil, err
	}

	var cols []string
	if p.current().Type == TokenStar {
		p.advance()
	} else {
		for {
			col, err := p.qualifiedIdentifier()
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
			if p.current().Type == TokenComma {
				p.advance()
				continue
			}
			break
		}
	}

	if err := p.expect(TokenKeyword, "FROM"); err != nil {
		return nil, err
	}
	var tables []string
	for {
		tab, err := p.identifier()
		if err != nil {
			return nil, err
		}
		tables = append(tables, tab)
		if p.current().Type == TokenComma {
			p.advance()
			continue
		}
		break
	}

	conds, err := p.optionalWhere()
	if err != nil {
		return nil, err
	}

	orderBy := ""
	if p.current().Type == TokenKeyword && p.current().Value == "ORDER" {
		p.advance()
		if err := p.expect(TokenKeyword, "BY"); err != nil {
			return nil, err
		}
		orderBy, err = p.qualifiedIdentifier()
		if err != nil {
			return nil, err
		}
	}

	p.optionalSemicolon()
	return &SelectStmt{Cols: cols, Tables: tables, Conds: conds, OrderBy: orderBy}, nil
}

// optionalWhere parses a WHERE clause's conjunction of conditions, if one
// is present. An empty conds slice means no WHERE clause.
func (p *Parser) optionalWhere() ([]Cond, error) {
	if !(p.current().Type == TokenKeyword && p.current().Value == "WHERE") {
		return nil, nil
	}
	p.advance()

	var conds []Cond
	for {
		cond, err := p.condition()
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
		if p.current().Type == TokenKeyword && p.current().Value == "AND" {
			p.advance()
			continue
		}
		break
	}
	return conds, nil
}

func (p *Parser) condition() (Cond, error) {
	col, err := p.qualifiedIdentifier()
	if err != nil {
		return Cond{}, err
	}
	opTok := p.current()
	if opTok.Type != TokenOperator {
		return Cond{}, errors.Errorf("sql: expected a comparison operator, got %v", opTok)
	}
	p.advance()

	if p.current().Type == TokenIdentifier {
		rhsCol, err := p.qualifiedIdentifier()
		if err != nil {
			return Cond{}, err
		}
		return Cond{Col: col, Op: opTok.Value, IsCol: true, RhsCol: rhsCol}, nil
	}
	v, err := p.value()
	if err != nil {
		return Cond{}, err
	}
	return Cond{Col: col, Op: opTok.Value, Rhs: v}, nil
}

func (p *Parser) value() (Value, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "sql: invalid integer literal %q", tok.Value)
		}
		p.advance()
		return Value{Kind: "int", Int: n}, nil
	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "sql: invalid float literal %q", tok.Value)
		}
		p.advance()
		return Value{Kind: "float", Float: f}, nil
	case TokenString:
		p.advance()
		return Value{Kind: "string", Str: tok.Value}, nil
	default:
		return Value{}, errors.Errorf("sql: expected a literal value, got %v", tok)
	}
}

// qualifiedIdentifier parses `col` or `table.col`, keeping the table
// qualifier (joined back with a dot) when present so a multi-table FROM
// list can disambiguate same-named columns downstream.
func (p *Parser) qualifiedIdentifier() (string, error) {
	name, err := p.identifier()
	if err != nil {
		return "", err
	}
	if p.current().Type == TokenDot {
		p.advance()
		col, err := p.identifier()
		if err != nil {
			return "", err
		}
		return name + "." + col, nil
	}
	return name, nil
}

func (p *Parser) identifier() (string, error) {
	tok := p.current()
	if tok.Type != TokenIdentifier {
		return "", errors.Errorf("sql: expected an identifier, got %v", tok)
	}
	p.advance()
	return tok.Value, nil
}

func (p *Parser) number() (int, error) {
	tok := p.current()
	if tok.Type != TokenNumber {
		return 0, errors.Errorf("sql: expected a number, got %v", tok)
	}
	n, err := strconv.Atoi(tok.Value)
	if err != nil {
		return 0, errors.Wrapf(err, "sql: invalid integer %q", tok.Value)
	}
	p.advance()
	return n, nil
}

func (p *Parser) optionalSemicolon() {
	if p.current().Type == TokenSemicolon {
		p.advance()
	}
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() {
	p.pos++
}

func (p *Parser) expect(tokenType TokenType, value string) error {
	tok := p.current()
	if tok.Type != tokenType {
		return errors.Errorf("sql: expected token type %v, got %v", tokenType, tok)
	}
	if value != "" && tok.Value != value {
		return errors.Errorf("sql: expected %q, got %q", value, tok.Value)
	}
	p.advance()
	return nil
}
