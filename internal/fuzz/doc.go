// Package fuzztests houses Go fuzz harnesses for the parsing pipeline
// (grammar -> parser -> forest -> syntax trees) and the forest codec. They
// smoke test robustness: no panics, no hangs, forests that keep their
// structural invariants.
//
// Назначение: гонять произвольные строки через встроенные грамматики и
// произвольные байты через декодер леса.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
//
// Зависимости: internal/grammars, internal/parser, internal/forest,
// internal/syntax, internal/testkit.

package fuzztests
