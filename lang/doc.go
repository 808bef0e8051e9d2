// Package lang defines the template language: its tokens, the lexer that
// splits template text from tags, the recursive descent parser that builds a
// [Template], and the error values shared by every stage of the engine.
//
// # Syntax
//
// Template text is copied to the output verbatim except for three kinds of
// tags:
//
//	{{ expr }}           output the value of an expression
//	{% stmt %}           control flow and definitions
//	{# comment #}        ignored (but visible to the signature scanner)
//
// A '-' just inside a delimiter ({{-, -%}, ...) strips the whitespace of the
// adjacent text.
//
// Statements:
//
//	{% if c %}...{% elif d %}...{% else %}...{% endif %}
//	{% for k, v in items if cond %}...{% else %}...{% endfor %}
//	{% set x = expr %}    {% set x %}...{% endset %}
//	{% do expr %}
//	{% macro name(a, b=1) %}...{% endmacro %}
//	{% call(args) name(...) %}...{% endcall %}
//	{% block name %}...{% endblock %}
//
// Expressions follow the usual precedence, loosest first: conditional
// (a if c else b), or, and, not, comparisons and membership (in, not in),
// + and -, concatenation (~), * / // %, **, unary - and +, then postfix
// attribute, item and call access. Filters (x|f(args)) and tests
// (x is defined) bind to a unary operand.
//
// # Errors
//
// Failures to tokenize or parse are reported as [*SyntaxError], which
// matches [ErrSyntax] with [errors.Is]. Runtime failures wrap one of the
// other sentinels, for example [ErrInvalidOperation].
package lang
