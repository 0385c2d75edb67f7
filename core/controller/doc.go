// Package controller implements the epoch-synchronized charging allocation
// controller.
//
// The controller tracks which participant reports have arrived within the
// current epoch, projects whether the aggregate energy budget can cover all
// outstanding charging deadlines, and computes a deadline-ordered,
// capacity-bounded power assignment per station. Allocation fires exactly
// once per epoch, as soon as metadata, station capacities and charging
// targets are all complete, regardless of the order in which the reports
// arrived. The epoch is reported complete only after the allocation has fired
// and every vehicle has acknowledged with a state update.
package controller
