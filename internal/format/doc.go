// Package format is the canonical pretty-printer of Gard syntax trees.
//
// Назначение: печать AST обратно в исходный текст (gard fmt) так, что
// повторный разбор даёт структурно равное дерево.
// Не делает: сохранение обычных комментариев и пустых строк; сохраняются
// только doc-комментарии.
// Зависимости: internal/ast, internal/token.
package format
