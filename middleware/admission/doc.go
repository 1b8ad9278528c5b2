// Package admission fornece adapters HTTP (net/http) para controle de admissão:
// rate limit por janela deslizante, guarda de timeout com vagas limitadas e
// instrumentação de performance por request.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, execução com deadline,
//     pipeline) sem net/http
//   - infra: implementações concretas (janela deslizante, token bucket,
//     semáforo, stores de métricas), detalhes de infraestrutura
//   - admission (este pacote): middlewares HTTP + wiring/extração de chave +
//     tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Instrumentação mede o tempo total e o tempo de banco (via contexto)
//  2. Extrai a chave do cliente (IP/header/XFF)
//  3. Chama a camada application para obter a decisão de admissão
//  4. Se bloqueado, responde 429 com corpo JSON {"error":"Rate limit exceeded"}
//  5. Se admitido, executa o próximo handler sob a guarda de timeout;
//     estouro de deadline, falha ou saturação respondem 503 sem detalhe interno
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o
// comportamento, como RATE_LIMIT, RATE_WINDOW, TIMEOUT e MAX_WORKERS.
package admission
