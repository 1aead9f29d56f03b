// Chronicle queries the historic record store of a process engine and
// reports which finished records are past their retention TTL.
//
// Usage:
//
//	# Serve the REST API with scheduled reports and metrics
//	chronicle serve --config chronicle.yaml
//
//	# Query finished invoice instances as CSV
//	chronicle query process-instance --definition-key invoice --finished -o csv
//
//	# Cleanable batch report ordered by finished count
//	chronicle report cleanable batch --sort desc
//
//	# Load historic records from a JSON export
//	chronicle import history.json
package main

func main() {
	Execute()
}
