// Package formdef builds formskema trees from declarative YAML or JSON
// definitions and binds decoded data to their fields.
//
// A definition lists the children of a composite; a child is either a leaf
// (type string, number or bool, with rules) or a nested definition:
//
//	name: signup
//	fields:
//	  - name: email
//	    rules:
//	      - rule: required
//	      - rule: email
//	  - name: password
//	    rules:
//	      - rule: min_len
//	        value: 8
//	  - name: confirm
//	  - name: addresses
//	    form:
//	      kind: array
//	      fields:
//	        - form:
//	            fields:
//	              - name: city
//	                rules: [{rule: required}]
//	rules:
//	  - rule: equal
//	    fields: [password, confirm]
//
// Leaf rules: required, min_len, max_len, pattern, email, one_of (string);
// required, min, max (number); required (bool). Form rules, object kind
// only: equal, at_least_one. Every rule accepts a message override.
//
// Build composes every composite over its children, so a passing child
// re-validates its parent once all siblings have passed.
package formdef
