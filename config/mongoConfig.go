package config

// MongoConfig represents the configuration needed to connect to the staging store
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}
