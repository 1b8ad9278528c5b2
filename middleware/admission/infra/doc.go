// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - WindowStore: log de janela deslizante por chave, com limpeza periódica
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - SemPool: vagas de worker via golang.org/x/sync/semaphore
//   - MemoryMetricsStore / RedisMetricsStore: amostras de latência por endpoint
package infra
