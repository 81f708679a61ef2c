package seckill

import "github.com/redis/go-redis/v9"

// 准入结果码
const (
	admitOK        = 0 // 准入成功，消息已入流
	admitSoldOut   = 1 // 库存不足
	admitDuplicate = 2 // 该用户已下过单
)

// admissionScript 秒杀准入脚本
//
// KEYS[1] 库存 key，KEYS[2] 去重集合 key，KEYS[3] 订单消息流；
// ARGV[1] voucherID，ARGV[2] userID，ARGV[3] orderID。
//
// 库存校验、一人一单去重、预扣库存、消息入流在同一脚本内原子完成，
// 准入通过即保证消息已在流中，进程崩溃不会产生"准入成功但无消息"
// 的悬挂订单。未预热的库存 key 视为售罄。
var admissionScript = redis.NewScript(`
local stock = tonumber(redis.call('get', KEYS[1]))
if stock == nil or stock <= 0 then
    return 1
end
if redis.call('sismember', KEYS[2], ARGV[2]) == 1 then
    return 2
end
redis.call('incrby', KEYS[1], -1)
redis.call('sadd', KEYS[2], ARGV[2])
redis.call('xadd', KEYS[3], '*', 'userId', ARGV[2], 'voucherId', ARGV[1], 'id', ARGV[3])
return 0
`)
