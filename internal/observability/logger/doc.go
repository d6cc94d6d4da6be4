// Package logger expone un logger Zap singleton para spore.
//
//   - Singleton: una sola instancia, inicializada con Init() desde cmd/spore.
//   - Context scoping: LoadKeys y el batch de firmas aceptan un ctx; si trae un
//     logger (ToContext) se usa ese, si no el singleton.
//   - Entornos: "dev" consola con colores, "prod" JSON. Siempre a stderr, porque
//     stdout lleva los registros firmados.
//
// Uso:
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.Named("signer")
//	log.Info("keys generated", logger.Algorithm("rsa-sha1"), logger.Fingerprint(fp))
package logger
