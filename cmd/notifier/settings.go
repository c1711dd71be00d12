package main

type Settings struct {
	Port        int    `env:"PORT,default=8000"`
	BasePath    string `env:"BASE_PATH,default=/notifier"`
	LogEncoding string `env:"LOG_ENCODING,default=console"`

	JWTSecret string   `env:"JWT_SECRET,required=true"`
	APIKeys   []string `env:"API_KEYS"`

	MongoURI       string   `env:"MONGO_URI,default=mongodb://localhost:27017"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`
}
