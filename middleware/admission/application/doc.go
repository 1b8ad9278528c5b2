// Package application contém os casos de uso (regras de aplicação) do controle
// de admissão: decisão allow/deny por chave, execução limitada por deadline e
// a composição das duas em um pipeline.
//
// Ele depende apenas do pacote domain e não conhece net/http.
package application
