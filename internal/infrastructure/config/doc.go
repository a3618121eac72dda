// Package config loads and validates Hearth Core configuration.
//
// Configuration comes from three layers, each overriding the last:
// hardcoded defaults, an optional YAML file, and environment variables.
// The environment layer honours both HEARTH_* names and the plain
// deployment-contract names (MQTT_BROKER, AWS_REGION, DYNAMODB_TABLE,
// SECRET_KEY) so existing .env files keep working.
//
// Validation distinguishes startup-fatal settings (broker address, session
// secret, TLS materials when TLS is on) from optional ones: an incomplete
// DynamoDB section disables the device state store instead of failing.
package config
