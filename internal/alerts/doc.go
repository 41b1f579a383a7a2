// Package alerts evaluates threshold rules against registry health snapshots
// and delivers webhook notifications when rules fire or resolve. Rules are
// plain "field op value" expressions from the config file; evaluation runs on
// every successful poll cycle.
package alerts
