package shared

// AggregateRoot 聚合根接口
// 聚合根是聚合的唯一入口，维护聚合的一致性边界
// 特性：
// 1. 有全局唯一标识
// 2. 维护聚合内部的不变量
// 3. 所有修改必须通过聚合根的命令方法进行
// 4. 每个成功的命令产生领域事件，状态变化只通过事件完成
type AggregateRoot interface {
	// ID 返回聚合根的全局唯一标识
	ID() string

	// Version 返回已持久化的事件数量，作为追加事件时的期望版本
	Version() int
}

// EventSourcedAggregate 事件溯源聚合根
// 仓储保存时：以 Version() 为期望版本追加 UncommittedEvents()，成功后调用 MarkCommitted()
type EventSourcedAggregate interface {
	AggregateRoot

	// AggregateType 聚合类型（如 "role", "user"），用于事件存储分类
	AggregateType() string

	// UncommittedEvents 返回尚未持久化的事件副本
	UncommittedEvents() []DomainEvent

	// MarkCommitted 将已追加的事件计入版本并清空待提交列表
	MarkCommitted()
}

// Entity 实体接口
// 实体通过标识判断相等性（即使属性相同，ID不同就是不同的实体）
type Entity interface {
	ID() string
}

// ValueObject 值对象接口
// 值对象没有唯一标识，不可变，通过属性值判断相等性
// 注意：Go语言中没有完美的方式强制实现不可变性，需要通过约定和编码规范保证
type ValueObject[T any] interface {
	Equals(other T) bool
}
